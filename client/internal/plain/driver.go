// Package plain runs the subscription flow as numbered prompts, for
// terminals where the full-screen picker cannot run.
package plain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cinemax-app/subscribe/client/internal/tui/picker"
	"github.com/cinemax-app/subscribe/client/internal/workflow"
	"github.com/cinemax-app/subscribe/pkg/api"
	"github.com/cinemax-app/subscribe/pkg/cli"
)

// Driver walks the workflow one prompt at a time.
type Driver struct {
	p      *cli.Prompter
	deps   picker.Deps
	logger *slog.Logger
	state  *workflow.State
}

// New creates a Driver using the given Prompter.
func New(p *cli.Prompter, deps picker.Deps) *Driver {
	deps = deps.WithDefaults()
	return &Driver{
		p:      p,
		deps:   deps,
		logger: deps.Logger.With("component", "plain"),
		state:  workflow.New(),
	}
}

// Run drives the flow until a plan is activated or the user quits. Running
// out of input counts as quitting.
func (d *Driver) Run(ctx context.Context) (picker.Result, error) {
	d.println()
	d.println("  Subscription")
	d.println(strings.Repeat("─", 42))
	d.println()

	d.openPlanPicker(ctx)
	for {
		var (
			res  *picker.Result
			err  error
			quit bool
		)
		switch d.state.Modal() {
		case workflow.ModalPlanPicker:
			quit, err = d.planStep(ctx)
		case workflow.ModalPaymentForm:
			err = d.paymentStep(ctx)
		case workflow.ModalAddCard:
			err = d.addCardStep(ctx)
		case workflow.ModalConfirmation:
			res, err = d.confirmStep(ctx)
		default:
			quit, err = d.landingStep(ctx)
		}

		switch {
		case errors.Is(err, cli.ErrInputClosed):
			return picker.Result{Cancelled: true}, nil
		case err != nil:
			return picker.Result{}, err
		case res != nil:
			return *res, nil
		case quit:
			return picker.Result{Cancelled: true}, nil
		}
	}
}

func (d *Driver) landingStep(ctx context.Context) (bool, error) {
	again, err := d.p.Confirm("Choose a plan?", true)
	if err != nil || !again {
		return true, err
	}
	d.openPlanPicker(ctx)
	return false, nil
}

func (d *Driver) planStep(ctx context.Context) (bool, error) {
	plans := d.state.Catalog().Plans()
	if len(plans) == 0 {
		d.println("  No plans available")
		d.state.ClosePlanPicker()
		return false, nil
	}

	options := make([]string, 0, len(plans)+1)
	for _, p := range plans {
		opt := fmt.Sprintf("%s  %s/month", p.Name, p.PriceLabel())
		if len(p.Benefits) > 0 {
			opt += "  (" + strings.Join(p.Benefits, ", ") + ")"
		}
		options = append(options, opt)
	}
	options = append(options, "Quit")

	idx, err := d.p.ChooseIndex("Choose your plan", options, 0)
	if err != nil {
		return false, err
	}
	if idx == len(plans) {
		return true, nil
	}

	dec, e := d.state.SelectPlan(plans[idx])
	if dec == workflow.DecisionNeedPaymentMethod {
		d.loadCards(ctx, e)
	}
	return false, nil
}

func (d *Driver) paymentStep(ctx context.Context) error {
	idx, err := d.p.ChooseIndex("Payment method", []string{"Stored card", "One-time payment code", "Back"}, 0)
	if err != nil {
		return err
	}
	switch idx {
	case 0:
		d.loadCards(ctx, d.state.ChooseChannel(workflow.ChannelStoredCard))
		return d.cardStep()
	case 1:
		d.showCode(ctx, d.state.ChooseChannel(workflow.ChannelOneTimeCode))
		return nil
	default:
		d.state.ClosePaymentForm()
		return nil
	}
}

func (d *Driver) cardStep() error {
	cards := d.state.Selection().Cards()
	if len(cards) == 0 {
		d.println("  No cards yet")
	}
	options := make([]string, 0, len(cards)+2)
	for _, c := range cards {
		options = append(options, c.Masked())
	}
	options = append(options, "Add card", "Back")

	idx, err := d.p.ChooseIndex("Choose a card", options, 0)
	if err != nil {
		return err
	}
	switch {
	case idx < len(cards):
		if plan := d.state.SelectCard(cards[idx].ID); plan != nil {
			d.state.SelectPlan(*plan)
		}
	case idx == len(cards):
		d.state.OpenAddCardForm()
	}
	return nil
}

func (d *Driver) addCardStep(ctx context.Context) error {
	d.println()
	d.println("Add card")
	var req api.RegisterCardRequest
	var err error
	if req.CardNumber, err = d.p.Ask("  Card number", ""); err != nil {
		return err
	}
	req.CardNumber = strings.ReplaceAll(req.CardNumber, " ", "")
	if req.HolderName, err = d.p.Ask("  Name on card", ""); err != nil {
		return err
	}
	if req.Expiry, err = d.p.Ask("  Expiry (MM/YY)", ""); err != nil {
		return err
	}
	if req.CVV, err = d.p.AskSecret("  CVV"); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, d.deps.Timeout)
	defer cancel()
	card, err := d.deps.Registrar.RegisterCard(cctx, d.deps.Session.UserID(), req)
	if err != nil {
		d.logger.Error("register card failed", "error", err)
		d.printf("  Could not add card: %v\n", err)
		retry, perr := d.p.Confirm("Try again?", true)
		if perr != nil {
			return perr
		}
		if !retry {
			d.state.CloseAddCardForm()
		}
		return nil
	}

	d.printf("  Card added %s\n\n", card.Masked())
	d.state.CloseAddCardForm()
	d.loadCards(ctx, d.state.OpenPaymentForm())
	return d.cardStep()
}

func (d *Driver) confirmStep(ctx context.Context) (*picker.Result, error) {
	ok, err := d.p.Confirm(d.state.ConfirmMessage(), true)
	if err != nil {
		return nil, err
	}
	if !ok {
		d.loadCards(ctx, d.state.CancelConfirmation())
		return nil, nil
	}

	a, err := d.state.BeginActivation(d.deps.Session.UserID())
	if err != nil {
		d.logger.Error("activation not started", "error", err)
		d.printf("  Activation failed: %v\n", err)
		return nil, nil
	}

	cctx, cancel := context.WithTimeout(ctx, d.deps.Timeout)
	defer cancel()
	token, err := d.deps.Activator.SelectSubscription(cctx, a.UserID, a.PlanType)
	d.state.FinishActivation(a)
	if err != nil {
		d.logger.Error("activation failed", "plan", a.PlanType, "error", err)
		d.printf("  Activation failed: %v\n", err)
		d.state.ReopenConfirmation()
		return nil, nil
	}

	if token != "" {
		if err := d.deps.Session.ReplaceCredential(token); err != nil {
			d.logger.Warn("store renewed credential", "error", err)
		}
	}
	d.state = workflow.New()
	d.printf("\n  ✓ Your %s subscription is active.\n", a.PlanType)
	return &picker.Result{Activated: true, PlanType: a.PlanType}, nil
}

func (d *Driver) openPlanPicker(ctx context.Context) {
	e := d.state.OpenPlanPicker()
	cctx, cancel := context.WithTimeout(ctx, d.deps.Timeout)
	defer cancel()
	plans, err := d.deps.Plans.ListPlans(cctx)
	if err != nil {
		d.logger.Error("list plans failed", "error", err)
	}
	d.state.ApplyCatalog(e, plans, err)
}

func (d *Driver) loadCards(ctx context.Context, e workflow.Epoch) {
	cctx, cancel := context.WithTimeout(ctx, d.deps.Timeout)
	defer cancel()
	cards, err := d.deps.Cards.ListCards(cctx, d.deps.Session.UserID())
	if err != nil {
		d.logger.Error("list cards failed", "error", err)
	}
	d.state.ApplyCards(e, cards, err)
}

func (d *Driver) showCode(ctx context.Context, e workflow.Epoch) {
	opts := d.deps.Code
	cctx, cancel := context.WithTimeout(ctx, d.deps.Timeout)
	defer cancel()
	img, err := d.deps.Codes.Generate(cctx, opts.Target, opts.Width, opts.Margin)
	if err != nil {
		d.logger.Error("generate one-time code failed", "error", err)
	}
	d.state.ApplyCode(e, img, err)

	if code := d.state.Selection().Code(); code != nil {
		d.println(code.Terminal)
		d.println("  Scan to pay")
	} else {
		d.println("  Code unavailable")
	}
	d.println()
}

func (d *Driver) println(a ...any) {
	_, _ = fmt.Fprintln(d.p.Out, a...)
}

func (d *Driver) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(d.p.Out, format, a...)
}
