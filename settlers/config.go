package settlers

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"settlers-lite/resource"
)

// Costs prices every purchasable item.
type Costs struct {
	Road            resource.Bundle `yaml:"road" json:"road"`
	Village         resource.Bundle `yaml:"village" json:"village"`
	City            resource.Bundle `yaml:"city" json:"city"`
	DevelopmentCard resource.Bundle `yaml:"development_card" json:"development_card"`
}

type Config struct {
	// Table
	MinPlayers int `yaml:"min_players" json:"min_players"`
	MaxPlayers int `yaml:"max_players" json:"max_players"`

	// Dice
	NumberOfDice int `yaml:"number_of_dice" json:"number_of_dice"`
	DiceSides    int `yaml:"dice_sides" json:"dice_sides"`

	// Pieces available to each player
	MaxRoads    int `yaml:"max_roads" json:"max_roads"`
	MaxVillages int `yaml:"max_villages" json:"max_villages"`
	MaxCities   int `yaml:"max_cities" json:"max_cities"`

	// Scoring
	VictoryPoints      int `yaml:"victory_points" json:"victory_points"`
	VillagePoints      int `yaml:"village_points" json:"village_points"`
	CityPoints         int `yaml:"city_points" json:"city_points"`
	VictoryCardPoints  int `yaml:"victory_card_points" json:"victory_card_points"`
	LargestArmyBonus   int `yaml:"largest_army_bonus" json:"largest_army_bonus"`
	LargestArmyMinimum int `yaml:"largest_army_minimum" json:"largest_army_minimum"`
	LongestRoadBonus   int `yaml:"longest_road_bonus" json:"longest_road_bonus"`
	LongestRoadMinimum int `yaml:"longest_road_minimum" json:"longest_road_minimum"`

	// Economy
	Costs                   Costs                            `yaml:"costs" json:"costs"`
	BankTradeRatio          int                              `yaml:"bank_trade_ratio" json:"bank_trade_ratio"`
	DiscardThreshold        int                              `yaml:"discard_threshold" json:"discard_threshold"`
	DevelopmentCardWeights  map[resource.DevelopmentCard]int `yaml:"development_cards" json:"development_cards"`
	SetupStartingResources  bool                             `yaml:"setup_starting_resources" json:"setup_starting_resources"`
	YearOfPlentyCards       int                              `yaml:"year_of_plenty_cards" json:"year_of_plenty_cards"`
	RoadBuildingRoads       int                              `yaml:"road_building_roads" json:"road_building_roads"`
	DevelopmentCardsPerTurn int                              `yaml:"development_cards_per_turn" json:"development_cards_per_turn"`

	// Optional: per-wait action timeout (0 waits forever)
	ActionTimeout time.Duration `yaml:"action_timeout" json:"action_timeout"`

	// RNG seed (0 => time-based)
	Seed int64 `yaml:"seed" json:"seed"`

	// Optional: fixed dice sequence for tests and replays. Exhausted => random.
	DiceOverride []int `yaml:"-" json:"-"`
}

func DefaultConfig() Config {
	return Config{
		MinPlayers:         2,
		MaxPlayers:         4,
		NumberOfDice:       2,
		DiceSides:          6,
		MaxRoads:           15,
		MaxVillages:        5,
		MaxCities:          4,
		VictoryPoints:      10,
		VillagePoints:      1,
		CityPoints:         2,
		VictoryCardPoints:  1,
		LargestArmyBonus:   2,
		LargestArmyMinimum: 3,
		LongestRoadBonus:   2,
		LongestRoadMinimum: 5,
		Costs: Costs{
			Road:            resource.Of(resource.Brick, 1, resource.Lumber, 1),
			Village:         resource.Of(resource.Brick, 1, resource.Lumber, 1, resource.Wool, 1, resource.Grain, 1),
			City:            resource.Of(resource.Grain, 2, resource.Ore, 3),
			DevelopmentCard: resource.Of(resource.Wool, 1, resource.Grain, 1, resource.Ore, 1),
		},
		BankTradeRatio:   4,
		DiscardThreshold: 7,
		DevelopmentCardWeights: map[resource.DevelopmentCard]int{
			resource.Knight:       14,
			resource.VictoryPoint: 5,
			resource.RoadBuilding: 2,
			resource.YearOfPlenty: 2,
			resource.Monopoly:     2,
		},
		SetupStartingResources:  true,
		YearOfPlentyCards:       2,
		RoadBuildingRoads:       2,
		DevelopmentCardsPerTurn: 1,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error { return c.validate() }

func (c Config) validate() error {
	if c.MinPlayers <= 0 {
		return fmt.Errorf("MinPlayers must be > 0")
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("MinPlayers must be <= MaxPlayers")
	}
	if c.NumberOfDice <= 0 || c.DiceSides <= 0 {
		return fmt.Errorf("invalid dice: %dd%d", c.NumberOfDice, c.DiceSides)
	}
	if c.MaxRoads < 0 || c.MaxVillages < 0 || c.MaxCities < 0 {
		return fmt.Errorf("piece limits must be >= 0")
	}
	if c.VictoryPoints <= 0 {
		return fmt.Errorf("VictoryPoints must be > 0")
	}
	if c.BankTradeRatio <= 0 {
		return fmt.Errorf("BankTradeRatio must be > 0")
	}
	if c.DiscardThreshold < 0 {
		return fmt.Errorf("DiscardThreshold must be >= 0")
	}
	for name, cost := range map[string]resource.Bundle{
		"road":             c.Costs.Road,
		"village":          c.Costs.Village,
		"city":             c.Costs.City,
		"development_card": c.Costs.DevelopmentCard,
	} {
		if !cost.Valid() {
			return fmt.Errorf("invalid %s cost %v", name, cost)
		}
	}
	total := 0
	for card, w := range c.DevelopmentCardWeights {
		if !card.Valid() || w < 0 {
			return fmt.Errorf("invalid development card weight %v=%d", card, w)
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("DevelopmentCardWeights must not be empty")
	}
	if c.YearOfPlentyCards < 0 || c.RoadBuildingRoads < 0 || c.DevelopmentCardsPerTurn < 0 {
		return fmt.Errorf("development card parameters must be >= 0")
	}
	if c.ActionTimeout < 0 {
		return fmt.Errorf("ActionTimeout must be >= 0")
	}
	return nil
}
