package simulation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nvandessel/trustloop/internal/app"
	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/models"
)

// defaultSessionID is used when a scenario names no session.
const defaultSessionID = "sim"

// Runner replays scenarios against an App opened on an isolated project root.
type Runner struct {
	root   string
	base   *config.Config
	stderr io.Writer
}

// NewRunner creates a runner storing sessions under root. stderr receives
// operational logs and may be nil.
func NewRunner(root string, stderr io.Writer) *Runner {
	return &Runner{root: root, stderr: stderr}
}

// WithConfig sets the configuration scenarios are layered on. Nil means
// the defaults.
func (r *Runner) WithConfig(cfg *config.Config) *Runner {
	r.base = cfg
	return r
}

// TurnResult captures the outcome of one replayed event.
type TurnResult struct {
	// Index is the position of the event in the replay, from 0.
	Index   int
	Label   string
	Outcome app.Outcome
	// State is the stored session state after the event.
	State models.SessionState
}

// Fired reports whether the event's pass triggered signal.
func (tr TurnResult) Fired(signal string) bool {
	if tr.Outcome.Result == nil {
		return false
	}
	for _, name := range tr.Outcome.Result.Triggered {
		if name == signal {
			return true
		}
	}
	return false
}

// Result captures every replayed event and the seeded start state.
type Result struct {
	Scenario  string
	SessionID string
	Start     models.SessionState
	Turns     []TurnResult
}

// Final returns the state after the last event.
func (r Result) Final() models.SessionState {
	if len(r.Turns) == 0 {
		return r.Start
	}
	return r.Turns[len(r.Turns)-1].State
}

// Pass returns the evaluation pass that ran as turn.
func (r Result) Pass(turn int) (TurnResult, bool) {
	for _, tr := range r.Turns {
		if tr.Outcome.Result != nil && tr.Outcome.Result.Turn == turn {
			return tr, true
		}
	}
	return TurnResult{}, false
}

// Labeled returns the first event replayed from a step with label.
func (r Result) Labeled(label string) (TurnResult, bool) {
	for _, tr := range r.Turns {
		if tr.Label == label {
			return tr, true
		}
	}
	return TurnResult{}, false
}

// Run replays sc. The session is removed first so reruns start clean.
func (r *Runner) Run(ctx context.Context, sc Scenario) (Result, error) {
	if err := sc.Validate(); err != nil {
		return Result{}, err
	}

	a, err := app.Open(ctx, app.Options{Root: r.root, Config: sc.config(r.base), Stderr: r.stderr})
	if err != nil {
		return Result{}, fmt.Errorf("opening app: %w", err)
	}
	defer a.Close()

	id := sc.SessionID
	if id == "" {
		id = defaultSessionID
	}
	if err := a.Reset(ctx, id); err != nil {
		return Result{}, fmt.Errorf("clearing session %s: %w", id, err)
	}
	if _, err := a.Store.Update(ctx, id, func(s *models.SessionState) error {
		sc.Start.apply(s)
		return nil
	}); err != nil {
		return Result{}, fmt.Errorf("seeding session %s: %w", id, err)
	}
	start, _, err := a.Store.Load(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("loading seeded session: %w", err)
	}

	result := Result{Scenario: sc.Name, SessionID: id, Start: start}
	for i, step := range sc.Steps {
		in, err := step.HookInput(id)
		if err != nil {
			return result, fmt.Errorf("step %d: %w", i, err)
		}
		for n := 0; n < step.times(); n++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			out, err := a.HandleEvent(ctx, in)
			if err != nil {
				return result, fmt.Errorf("step %d: %w", i, err)
			}
			state, _, err := a.Store.Load(ctx, id)
			if err != nil {
				return result, fmt.Errorf("step %d: loading state: %w", i, err)
			}
			result.Turns = append(result.Turns, TurnResult{
				Index:   len(result.Turns),
				Label:   step.Label,
				Outcome: out,
				State:   state,
			})
		}
	}
	return result, nil
}

// WriteTable renders one row per replayed event.
func (r Result) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tTURN\tEVENT\tLABEL\tCONFIDENCE\tTIER\tDETAIL\n")
	for _, tr := range r.Turns {
		turn, conf, tier, detail := "-", fmt.Sprint(tr.State.Confidence), "", ""
		switch {
		case tr.Outcome.Result != nil:
			res := tr.Outcome.Result
			turn = fmt.Sprint(res.Turn)
			conf = fmt.Sprintf("%d -> %d", res.OldConfidence, res.NewConfidence)
			tier = res.Tier.String()
			detail = strings.Join(res.Triggered, ",")
			if res.RateLimited {
				detail += " (rate limited)"
			}
		case tr.Outcome.Gate != nil:
			g := tr.Outcome.Gate
			tier = g.Tier.String()
			detail = fmt.Sprintf("%s %s", g.Verdict, g.Action)
		case tr.Outcome.Status != nil:
			tier = tr.Outcome.Status.Decision.Tier.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", tr.Index, turn, tr.Outcome.Event, tr.Label, conf, tier, detail)
	}
	return tw.Flush()
}
