package settlers

import (
	"testing"

	"settlers-lite/resource"
)

func TestRemoveResourcesIsAllOrNothing(t *testing.T) {
	p := NewPlayer(1, "ana", "red", false)
	p.AddResources(resource.Of(resource.Brick, 2, resource.Lumber, 1))

	if p.RemoveResources(resource.Of(resource.Brick, 1, resource.Ore, 1)) {
		t.Fatalf("expected removal to fail without ore")
	}
	if got := p.Resources(); got[resource.Brick] != 2 || got[resource.Lumber] != 1 {
		t.Fatalf("failed removal must not change the hand, got %v", got)
	}
	if !p.RemoveResources(resource.Of(resource.Brick, 2)) {
		t.Fatalf("expected removal to succeed")
	}
	if p.ResourceCount(resource.Brick) != 0 || p.TotalResources() != 1 {
		t.Fatalf("unexpected hand %v", p.Resources())
	}
	if p.RemoveResource(resource.Lumber, -1) {
		t.Fatalf("negative removal must be refused")
	}
	p.AddResource(resource.Wool, -3)
	if p.ResourceCount(resource.Wool) != 0 {
		t.Fatalf("negative add must be ignored")
	}
}

func TestRemoveDevelopmentCardMovesToPlayed(t *testing.T) {
	p := NewPlayer(1, "ana", "red", false)
	if p.RemoveDevelopmentCard(resource.Knight) {
		t.Fatalf("expected removal of an unheld card to fail")
	}
	p.AddDevelopmentCard(resource.Knight)
	p.AddDevelopmentCard(resource.Knight)
	if !p.RemoveDevelopmentCard(resource.Knight) {
		t.Fatalf("expected removal to succeed")
	}
	if p.DevelopmentCards()[resource.Knight] != 1 || p.KnightsPlayed() != 1 {
		t.Fatalf("expected one held and one played knight, got %v / %v", p.DevelopmentCards(), p.PlayedCards())
	}
	if p.TotalDevelopmentCards() != 1 {
		t.Fatalf("expected 1 development card, got %d", p.TotalDevelopmentCards())
	}
}

func TestRemainingPiecesNeverNegative(t *testing.T) {
	cfg := DefaultConfig()
	p := NewPlayer(1, "ana", "red", false)
	p.roads = cfg.MaxRoads + 3
	if p.RemainingRoads(cfg) != 0 {
		t.Fatalf("expected 0 remaining roads, got %d", p.RemainingRoads(cfg))
	}
	if p.RemainingVillages(cfg) != cfg.MaxVillages {
		t.Fatalf("expected all villages remaining")
	}
}

func TestDropLargestTakesFromBiggestPiles(t *testing.T) {
	drop := DropLargest(resource.Of(resource.Ore, 5, resource.Wool, 3, resource.Brick, 1), 4)
	if drop.Total() != 4 {
		t.Fatalf("expected 4 cards, got %v", drop)
	}
	if drop[resource.Ore] != 3 || drop[resource.Wool] != 1 {
		t.Fatalf("unexpected drop %v", drop)
	}
}

func TestStateWinnerSetOnce(t *testing.T) {
	var s State
	if err := s.SetWinner(2, []PlayerID{2, 3}); err != nil {
		t.Fatalf("SetWinner err: %v", err)
	}
	if err := s.SetWinner(3, nil); err == nil {
		t.Fatalf("expected second SetWinner to fail")
	}
	if w, ok := s.Winner(); !ok || w != 2 {
		t.Fatalf("expected winner 2, got %d", w)
	}
	if len(s.Winners()) != 2 {
		t.Fatalf("expected both winners kept, got %v", s.Winners())
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Fatalf("default config err: %v", err)
	}
	cfg := DefaultConfig()
	cfg.MinPlayers = 5
	if cfg.validate() == nil {
		t.Fatalf("expected MinPlayers > MaxPlayers to fail")
	}
	cfg = DefaultConfig()
	cfg.DevelopmentCardWeights = nil
	if cfg.validate() == nil {
		t.Fatalf("expected empty development card weights to fail")
	}
}
