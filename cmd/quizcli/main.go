package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"learningassistant"
)

func main() {
	cfg, err := learningassistant.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		bankDir     = flag.String("bank-dir", cfg.BankDir, "Directory of JSON bank files")
		bankID      = flag.String("bank", "", "Bank ID in the database (used when -bank-dir is empty)")
		driver      = flag.String("driver", string(cfg.DBDriver), "Database driver (sqlite3, sqlite, pgx)")
		dsn         = flag.String("dsn", cfg.DBDSN, "Database DSN")
		numQuestion = flag.Int("questions", 0, "Number of questions to draw (0 = whole bank)")
		seed        = flag.Int64("seed", 0, "Shuffle seed (0 = random)")
		lang        = flag.String("lang", "", "Translate questions to en, ko, es or fr")
		noAssistant = flag.Bool("no-assistant", false, "Disable the assistant even if an API key is set")
		verbose     = flag.Bool("verbose", cfg.Verbose, "Enable verbose debugging output")
	)
	flag.Parse()

	learningassistant.SetVerbose(*verbose)

	var language learningassistant.Language
	if *lang != "" {
		if language, err = learningassistant.ParseLanguage(*lang); err != nil {
			log.Fatal(err)
		}
	}

	bank, err := loadBank(*bankDir, *bankID, learningassistant.Driver(*driver), *dsn)
	if err != nil {
		log.Fatalf("Failed to load bank: %v", err)
	}

	opts := []learningassistant.SessionOption{learningassistant.WithLimit(*numQuestion)}
	if *seed != 0 {
		opts = append(opts, learningassistant.WithSeed(*seed))
	}
	session, err := learningassistant.NewSession(bank, opts...)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	p := &player{
		session: session,
		lang:    language,
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		timeout: cfg.AdvisoryTimeout,
	}
	if cfg.AssistantEnabled() && !*noAssistant {
		logger, err := learningassistant.NewLLMLogger(cfg.LogDir, session.ID(), session.TotalCount())
		if err != nil {
			log.Printf("Failed to create LLM log: %v", err)
		}
		defer logger.Close()
		ai := learningassistant.NewOpenAIAssistant(cfg.OpenAI()).WithLogger(logger)
		p.assistant = learningassistant.NewTranslationCache(ai)
		p.tutor = ai
		p.logger = logger
	}

	p.play(context.Background())
}

func loadBank(dir, bankID string, driver learningassistant.Driver, dsn string) ([]learningassistant.Question, error) {
	if dir != "" {
		questions, rejected, err := learningassistant.ReadBankDir(dir)
		if err != nil {
			return nil, err
		}
		for _, re := range rejected {
			log.Printf("Skipping record: %v", re)
		}
		return questions, nil
	}
	if bankID == "" {
		return nil, errors.New("either -bank-dir or -bank is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := learningassistant.OpenBankDB(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadQuestions(ctx, bankID)
}

// player runs one sitting on a terminal.
type player struct {
	session   *learningassistant.Session
	assistant learningassistant.Assistant
	tutor     learningassistant.Tutor
	logger    *learningassistant.LLMLogger
	lang      learningassistant.Language
	timeout   time.Duration

	in  *bufio.Scanner
	out io.Writer
}

func (p *player) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *player) prompt(label string) (string, bool) {
	p.printf("%s", label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *player) play(ctx context.Context) {
	p.printf("🎯 Starting sitting %s with %d questions\n", p.session.ID(), p.session.TotalCount())
	p.printf("Answer with letters (e.g. \"A\" or \"B, D\"). Commands: m = mark, u = unmark, r = reset, q = quit\n\n")

	for !p.session.Terminal() {
		if !p.askCurrent(ctx) {
			break
		}
	}
	p.showReport(ctx)
}

// askCurrent handles one question until it is answered and passed. It
// returns false when the user quits.
func (p *player) askCurrent(ctx context.Context) bool {
	q, _ := p.session.CurrentQuestion()
	view, _ := p.session.View()
	if p.lang != "" && p.assistant != nil {
		if tq, err := p.assistant.Translate(ctx, q, p.lang); err != nil {
			log.Printf("Translation failed, showing original: %v", err)
		} else {
			view = view.Translated(tq)
		}
	}
	p.printView(view)

	var verdict learningassistant.Verdict
	for {
		line, ok := p.prompt("Your answer: ")
		if !ok {
			return false
		}
		switch strings.ToLower(line) {
		case "q":
			return false
		case "m", "u":
			var err error
			if line == "m" || line == "M" {
				err = p.session.Mark()
			} else {
				err = p.session.Unmark()
			}
			if err != nil {
				p.printf("⚠️  %v\n", err)
			} else {
				p.printf("🔖 Marker updated\n")
			}
			continue
		case "r":
			p.session.Reset()
			p.printf("🔄 Sitting reset\n\n")
			return true
		}

		sel, err := learningassistant.ParseSelection(line)
		if err == nil {
			verdict, err = p.session.Submit(sel)
		}
		if err != nil {
			p.printf("⚠️  %v\n", err)
			continue
		}
		break
	}
	p.logger.LogVerdict(p.session.Cursor()+1, verdict)

	var advisory <-chan learningassistant.Advisory
	if p.assistant != nil {
		advisory = learningassistant.CrossCheckAsync(ctx, p.assistant, q, p.timeout)
	}

	if verdict.Outcome == learningassistant.Correct {
		p.printf("✅ Correct!\n")
	} else {
		p.printf("❌ Incorrect. Correct answer: %s\n", verdict.GroundTruth)
	}
	if q.Explanation != "" {
		p.printf("\n📖 %s\n", q.Explanation)
	}

	for {
		line, ok := p.prompt("\nPress Enter to continue, or type a question for the tutor: ")
		if !ok {
			return false
		}
		if line == "" {
			break
		}
		p.ask(ctx, q, line)
	}
	p.printAdvisory(advisory)

	if err := p.session.Advance(); err != nil {
		p.printf("⚠️  %v\n", err)
	}
	p.printf("\n")
	return true
}

func (p *player) printView(v learningassistant.QuestionView) {
	marked := ""
	if v.Marked {
		marked = " 🔖"
	}
	p.printf("Question %d/%d  |  Difficulty %d%%%s\n", v.Number, p.session.TotalCount(), v.Difficulty, marked)
	p.printf("%s\n\n", v.Text)
	for _, o := range v.Options {
		p.printf("  %s. %s\n", o.Letter, o.Text)
	}
	p.printf("(choose %d)\n", v.AnswerCount)
}

func (p *player) printAdvisory(ch <-chan learningassistant.Advisory) {
	if ch == nil {
		return
	}
	select {
	case a := <-ch:
		p.logger.LogAdvisory(p.session.Cursor()+1, a)
		switch a.Label() {
		case "pass":
			p.printf("🤖 Assistant agrees: %s\n", a.Proposed)
		case "different":
			p.printf("🤖 Assistant answered %s instead\n", a.Proposed)
		default:
			p.printf("🤖 Assistant unavailable\n")
		}
	default:
		p.printf("🤖 Assistant still thinking, skipping\n")
	}
}

func (p *player) ask(ctx context.Context, q learningassistant.Question, message string) {
	if p.tutor == nil {
		p.printf("No tutor configured.\n")
		return
	}
	history := []learningassistant.ChatMessage{{Role: "user", Content: message}}
	stream, err := p.tutor.Explain(ctx, q, history)
	if err != nil {
		p.printf("⚠️  %v\n", err)
		return
	}
	defer stream.Close()
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.printf("\n⚠️  %v\n", err)
			return
		}
		p.printf("%s", chunk)
	}
	p.printf("\n")
}

func (p *player) showReport(ctx context.Context) {
	report := p.session.Report()
	if p.tutor != nil {
		sctx, cancel := context.WithTimeout(ctx, p.timeout)
		report = learningassistant.SummarizeReport(sctx, p.tutor, report)
		cancel()
	}

	p.printf("\n🏁 Result: %d/%d correct (%.0f%%)\n", report.Correct, report.Answered, report.CorrectRate*100)
	if len(report.Incorrect) > 0 {
		p.printf("\nIncorrect:\n")
		for _, v := range report.Incorrect {
			p.printf("  %d. %s (answer %s, you chose %s)\n", v.Number, v.Text, v.GroundTruth, v.Selection)
		}
	}
	if len(report.Marked) > 0 {
		p.printf("\nMarked:\n")
		for _, v := range report.Marked {
			p.printf("  %d. %s\n", v.Number, v.Text)
		}
	}
	if report.Summary != "" {
		p.printf("\n📝 %s\n", report.Summary)
	}
}
