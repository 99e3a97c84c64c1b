package workflow

import (
	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
	"github.com/cinemax-app/subscribe/pkg/api"
)

// Selection tracks the active payment channel and the user's stored cards.
// It is the only writer of StoredCard.Selected: at most one known card is
// selected at any time.
type Selection struct {
	channel   Channel
	showCards bool
	cards     []api.StoredCard
	code      *onetimecode.Image
}

// Channel returns the active payment channel.
func (s *Selection) Channel() Channel { return s.channel }

// ShowingCards reports whether the stored-card list is displayed.
func (s *Selection) ShowingCards() bool {
	return s.channel == ChannelStoredCard && s.showCards
}

// Cards returns a copy of the known cards.
func (s *Selection) Cards() []api.StoredCard {
	out := make([]api.StoredCard, len(s.cards))
	copy(out, s.cards)
	return out
}

// Code returns the one-time payment code image, or nil.
func (s *Selection) Code() *onetimecode.Image {
	if s.channel != ChannelOneTimeCode {
		return nil
	}
	return s.code
}

// SelectedCount returns how many known cards carry the selected flag.
func (s *Selection) SelectedCount() int {
	n := 0
	for _, c := range s.cards {
		if c.Selected {
			n++
		}
	}
	return n
}

func (s *Selection) choose(c Channel) {
	s.channel = c
	switch c {
	case ChannelStoredCard:
		s.showCards = true
		s.code = nil
	case ChannelOneTimeCode:
		s.showCards = false
	default:
		s.showCards = false
		s.code = nil
	}
}

// replaceCards installs a freshly fetched list. The highlight follows the
// card chosen by the workflow, if it is still present. Only the first card
// with that id is highlighted.
func (s *Selection) replaceCards(cards []api.StoredCard, chosenID string) {
	s.cards = make([]api.StoredCard, len(cards))
	highlighted := false
	for i, c := range cards {
		c.Selected = !highlighted && chosenID != "" && c.ID == chosenID
		if c.Selected {
			highlighted = true
		}
		s.cards[i] = c
	}
}

// mark selects the card with the given id and deselects every other card.
// Selections are cleared even when id matches nothing.
func (s *Selection) mark(id string) (api.StoredCard, bool) {
	var (
		found api.StoredCard
		ok    bool
	)
	for i := range s.cards {
		if s.cards[i].ID == id && !ok {
			s.cards[i].Selected = true
			found, ok = s.cards[i], true
			continue
		}
		s.cards[i].Selected = false
	}
	return found, ok
}

func (s *Selection) setCode(img *onetimecode.Image) { s.code = img }

// reset drops everything that belongs to an open payment form. Known cards
// stay so a reopened form shows them until the refetch lands.
func (s *Selection) reset() {
	s.channel = ChannelNone
	s.showCards = false
	s.code = nil
}
