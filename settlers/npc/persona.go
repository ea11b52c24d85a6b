package npc

// PersonalityProfile defines the tunable parameters for a RuleBrain.
type PersonalityProfile struct {
	Aggression float64 `json:"aggression"` // 0.0–1.0: tendency to spend on cards and knights vs save
	Tightness  float64 `json:"tightness"`  // 0.0–1.0: reluctance to accept trades
	Trading    float64 `json:"trading"`    // 0.0–1.0: how readily surplus goes to the bank
	Expansion  float64 `json:"expansion"`  // 0.0–1.0: preference for roads over waiting on a village
	Randomness float64 `json:"randomness"` // 0.0–1.0: decision noise
}

// NPCPersona defines a named NPC character.
type NPCPersona struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Tagline   string             `json:"tagline"`
	AvatarKey string             `json:"avatarKey"`
	Color     string             `json:"color"`
	Tier      int                `json:"tier"` // 1=expert, 2=regular, 3=casual
	Brain     PersonalityProfile `json:"brain"`
}
