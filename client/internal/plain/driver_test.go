package plain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
	"github.com/cinemax-app/subscribe/client/internal/tui/picker"
	"github.com/cinemax-app/subscribe/pkg/api"
	"github.com/cinemax-app/subscribe/pkg/cli"
)

type fakeBackend struct {
	cards       []api.StoredCard
	activateErr error
	activated   []string
	registered  []api.RegisterCardRequest
	replaced    []string
}

func (f *fakeBackend) ListPlans(context.Context) ([]api.Plan, error) {
	return []api.Plan{
		{ID: "p0", Type: "basic", Name: "Basic", Price: decimal.RequireFromString("19.9")},
		{ID: "p1", Type: "premium", Name: "Premium", Price: decimal.RequireFromString("39.9"), Benefits: []string{"4K"}},
	}, nil
}

func (f *fakeBackend) ListCards(context.Context, string) ([]api.StoredCard, error) {
	return f.cards, nil
}

func (f *fakeBackend) RegisterCard(_ context.Context, _ string, req api.RegisterCardRequest) (api.StoredCard, error) {
	f.registered = append(f.registered, req)
	card := api.StoredCard{ID: "c9", CardNumber: req.CardNumber}
	f.cards = append(f.cards, card)
	return card, nil
}

func (f *fakeBackend) SelectSubscription(_ context.Context, userID, planType string) (string, error) {
	f.activated = append(f.activated, userID+"/"+planType)
	if f.activateErr != nil {
		return "", f.activateErr
	}
	return "renewed", nil
}

func (f *fakeBackend) Generate(context.Context, string, int, int) (*onetimecode.Image, error) {
	return &onetimecode.Image{Terminal: "[code]"}, nil
}

func (f *fakeBackend) UserID() string { return "u1" }

func (f *fakeBackend) ReplaceCredential(token string) error {
	f.replaced = append(f.replaced, token)
	return nil
}

func runDriver(t *testing.T, f *fakeBackend, input string) (picker.Result, string) {
	t.Helper()
	out := &bytes.Buffer{}
	p := &cli.Prompter{In: strings.NewReader(input), Out: out}
	d := New(p, picker.Deps{
		Plans:     f,
		Cards:     f,
		Registrar: f,
		Activator: f,
		Codes:     f,
		Session:   f,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	return res, out.String()
}

func TestRun_NoCardsOffersAddCard(t *testing.T) {
	f := &fakeBackend{}
	// premium, stored card, back, back, don't choose again
	res, out := runDriver(t, f, "2\n1\n2\n3\nn\n")

	assert.True(t, res.Cancelled)
	assert.Contains(t, out, "No cards yet")
	assert.Contains(t, out, "Add card")
	assert.Empty(t, f.activated)
}

func TestRun_ConfirmActivates(t *testing.T) {
	f := &fakeBackend{cards: []api.StoredCard{{ID: "c1", CardNumber: "4111111111111111"}}}
	res, out := runDriver(t, f, "2\n1\n1\ny\n")

	assert.Equal(t, picker.Result{Activated: true, PlanType: "premium"}, res)
	assert.Contains(t, out, "Continue paying for the premium subscription with card **** **** **** 1111?")
	assert.Equal(t, []string{"u1/premium"}, f.activated)
	assert.Equal(t, []string{"renewed"}, f.replaced)
}

func TestRun_ActivationFailure(t *testing.T) {
	f := &fakeBackend{
		cards:       []api.StoredCard{{ID: "c1", CardNumber: "4111111111111111"}},
		activateErr: errors.New("payment declined"),
	}
	// Fails, the confirmation comes straight back and the retry fails too;
	// the user then declines, goes back and quits.
	res, out := runDriver(t, f, "2\n1\n1\ny\ny\nn\n3\nn\n")

	assert.True(t, res.Cancelled)
	assert.Equal(t, 2, strings.Count(out, "Activation failed: payment declined"))
	assert.Equal(t, []string{"u1/premium", "u1/premium"}, f.activated)
	assert.Empty(t, f.replaced)
	assert.Equal(t, 3, strings.Count(out, "Continue paying for the premium subscription"))
}

func TestRun_OneTimeCode(t *testing.T) {
	f := &fakeBackend{}
	res, out := runDriver(t, f, "1\n2\n")

	assert.True(t, res.Cancelled, "input ran out")
	assert.Contains(t, out, "[code]")
	assert.Contains(t, out, "Scan to pay")
}

func TestRun_AddCard(t *testing.T) {
	f := &fakeBackend{}
	res, out := runDriver(t, f, "2\n1\n1\n4111 1111 1111 1111\nAna\n12/30\n123\n1\ny\n")

	require.Len(t, f.registered, 1)
	assert.Equal(t, "4111111111111111", f.registered[0].CardNumber)
	assert.Contains(t, out, "Card added **** **** **** 1111")
	assert.Equal(t, picker.Result{Activated: true, PlanType: "premium"}, res)
}

func TestRun_EOF(t *testing.T) {
	res, _ := runDriver(t, &fakeBackend{}, "")
	assert.True(t, res.Cancelled)
}
