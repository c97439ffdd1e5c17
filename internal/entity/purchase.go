package entity

type OutcomeType string

const (
	OutcomeLoss     OutcomeType = "loss"
	OutcomeWinCoins OutcomeType = "win_coins"
	OutcomeWinRole  OutcomeType = "win_role"
)

// Outcome is the result of opening a single box. Exactly one of the
// role fields or the coin delta is meaningful depending on Type.
type Outcome struct {
	Type OutcomeType `json:"type"`

	// Coins is the balance delta: negative or zero for a loss, at least
	// one for a coin win, zero for a role win.
	Coins int64 `json:"coins"`

	RoleID         string `json:"role_id,omitempty"`
	RoleName       string `json:"role_name,omitempty"`
	RemainingAfter int    `json:"remaining_after,omitempty"`
}

// Purchase is the append-only record of one buy invocation. It is never
// mutated after creation; CreatedAt is the purchase timestamp the rolling
// window is computed from.
type Purchase struct {
	Base

	CommunityID string `gorm:"index:idx_purchases_window,priority:1"`
	UserID      string `gorm:"index:idx_purchases_window,priority:2"`

	BoxCount      int
	TotalCost     int64
	NetCoinChange int64
	Outcomes      Array[Outcome]

	// Denormalized outcome counters, kept so statistics stay a plain
	// aggregate query instead of unpacking the outcome json.
	CoinWins  int
	RoleWins  int
	Losses    int
	CoinsWon  int64
	CoinsLost int64
}
