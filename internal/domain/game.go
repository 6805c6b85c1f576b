package domain

// Genre is a catalog genre tag
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// PlatformRef is a catalog platform entry used for filtering
type PlatformRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Platform wraps a platform reference the way the metadata API nests it
type Platform struct {
	Platform PlatformRef `json:"platform"`
}

// Game represents a catalog entry decorated with a simulated price
type Game struct {
	ID              int        `json:"id"`
	Slug            string     `json:"slug"`
	Name            string     `json:"name"`
	Released        string     `json:"released"`
	BackgroundImage string     `json:"background_image"`
	Rating          float64    `json:"rating"`
	Price           float64    `json:"price"`
	OriginalPrice   *float64   `json:"original_price,omitempty"`
	DiscountPercent *int       `json:"discount_percent,omitempty"`
	Platforms       []Platform `json:"platforms"`
	Genres          []Genre    `json:"genres"`
}

// Developer is a studio credited on a game
type Developer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Publisher is a publisher credited on a game
type Publisher struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Screenshot is a single in-game image
type Screenshot struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

// GameDetails is a game with its long-form metadata
type GameDetails struct {
	Game
	DescriptionRaw string       `json:"description_raw"`
	Developers     []Developer  `json:"developers"`
	Publishers     []Publisher  `json:"publishers"`
	Screenshots    []Screenshot `json:"screenshots"`
}

// IsDiscounted reports whether the simulator applied a discount
func (g Game) IsDiscounted() bool {
	return g.DiscountPercent != nil && *g.DiscountPercent > 0
}
