package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/config"
	"github.com/dhruv2494/mocktail-engine/internal/engine"
	"github.com/dhruv2494/mocktail-engine/internal/logger"
	"github.com/dhruv2494/mocktail-engine/internal/model"
	"github.com/dhruv2494/mocktail-engine/internal/validator"
)

const usage = `commands:
  1-4      select option for the current question
  f        toggle flag on the current question
  n / p    next / previous question
  g <num>  go to question number
  z        pause or resume
  v        show the question grid
  s        submit the attempt
  q        leave (best-effort checkpoint, then exit)`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: quiz <test-id>")
		os.Exit(2)
	}
	testID := os.Args[1]

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.HTTPTimeout, log)
	eng := engine.New(client, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	err := eng.Start(ctx, testID)
	cancel()
	if err != nil {
		// Start failures are fatal to this screen: report and leave.
		log.Error().Err(err).Str("test_id", testID).Msg("Could not start session")
		fmt.Fprintf(os.Stderr, "could not start test %q: %v\n", testID, err)
		os.Exit(1)
	}

	session := eng.Session()
	fmt.Printf("Session started — %d questions, %s remaining\n",
		len(eng.Questions()), formatClock(session.RemainingSeconds))
	if session.IsDemo {
		fmt.Println("(demo attempt: answers are not persisted server-side)")
	}
	fmt.Println(usage)

	done := make(chan struct{})
	go watchEvents(eng, done)

	printQuestion(eng)
	runLoop(eng, log)

	<-time.After(50 * time.Millisecond) // let final events print
	close(done)
}

// watchEvents surfaces engine notifications without ever blocking it.
func watchEvents(eng *engine.Engine, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-eng.Events():
			switch ev.Kind {
			case engine.EventTick:
				if ev.RemainingSeconds <= 10 || ev.RemainingSeconds%60 == 0 {
					fmt.Printf("\r  [%s remaining]\n", formatClock(ev.RemainingSeconds))
				}
			case engine.EventExpired:
				fmt.Println("\nTime is up — submitting your answers...")
			case engine.EventSubmitted:
				r := ev.Result
				fmt.Printf("\nSubmitted. Score %.1f/%.1f (%d correct of %d attempted)\n",
					r.Score, r.TotalMarks, r.Correct, r.Attempted)
			case engine.EventSubmitFailed:
				fmt.Printf("\nSubmission failed: %v\n", ev.Err)
			case engine.EventPausePersistFailed:
				fmt.Println("\n(pause saved locally; server checkpoint pending)")
			}
		}
	}
}

func runLoop(eng *engine.Engine, log zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		state := eng.ViewState()
		if state.Status.Terminal() {
			return
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			eng.Abandon()
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := handle(eng, input); err != nil {
			if errors.Is(err, errQuit) {
				eng.Abandon()
				fmt.Println("Checkpoint requested, leaving.")
				return
			}
			fmt.Printf("  %v\n", err)
			log.Debug().Err(err).Str("input", input).Msg("Intent rejected")
		}
	}
}

var errQuit = errors.New("quit")

func handle(eng *engine.Engine, input string) error {
	state := eng.ViewState()

	switch {
	case input == "q":
		return errQuit

	case input == "v":
		printGrid(state)
		return nil

	case input == "z":
		if state.IsPaused {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := eng.Resume(ctx); err != nil {
				return fmt.Errorf("resume failed, still paused (retry with 'z'): %w", err)
			}
			fmt.Printf("Resumed — %s remaining\n", formatClock(eng.ViewState().RemainingSeconds))
			return nil
		}
		if err := eng.Pause(); err != nil {
			return err
		}
		fmt.Println("Paused.")
		return nil

	case input == "s":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := eng.Submit(ctx, model.SubmitReasonManual); err != nil {
			if errors.Is(err, engine.ErrSubmitInFlight) {
				return errors.New("already submitting")
			}
			return fmt.Errorf("submit failed, you may retry: %w", err)
		}
		return nil

	case input == "f":
		return eng.ToggleFlag(state.CurrentIndex)

	case input == "n":
		if err := eng.GoTo(state.CurrentIndex + 1); err != nil {
			return err
		}
		printQuestion(eng)
		return nil

	case input == "p":
		if err := eng.GoTo(state.CurrentIndex - 1); err != nil {
			return err
		}
		printQuestion(eng)
		return nil

	case strings.HasPrefix(input, "g "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(input, "g ")))
		if err != nil {
			return fmt.Errorf("not a question number: %q", input)
		}
		if err := eng.GoTo(n - 1); err != nil {
			return err
		}
		printQuestion(eng)
		return nil

	case input >= "1" && input <= "4" && len(input) == 1:
		option := int(input[0] - '1')
		if err := eng.SelectAnswer(state.CurrentIndex, option); err != nil {
			return err
		}
		fmt.Println("  saved")
		return nil
	}

	return fmt.Errorf("unknown command %q", input)
}

func printQuestion(eng *engine.Engine) {
	state := eng.ViewState()
	questions := eng.Questions()
	if state.CurrentIndex >= len(questions) {
		return
	}
	q := questions[state.CurrentIndex]
	fmt.Printf("\nQ%d. %s\n", state.CurrentIndex+1, q.Prompt)
	for i, opt := range q.Options {
		fmt.Printf("  %d) %s\n", i+1, opt)
	}
}

func printGrid(state model.QuizViewState) {
	for i, cell := range state.Grid {
		marker := " "
		switch cell.State {
		case model.QuestionStateCurrent:
			marker = ">"
		case model.QuestionStateAnswered:
			marker = "A"
		case model.QuestionStateFlagged:
			marker = "F"
		}
		flag := ""
		if cell.Flagged && cell.State != model.QuestionStateFlagged {
			flag = "*"
		}
		fmt.Printf("  [%s]%s Q%d\n", marker, flag, i+1)
	}
	fmt.Printf("  %s remaining\n", formatClock(state.RemainingSeconds))
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
