package model

type Outcome struct {
	Type           string `json:"type"`
	Coins          int64  `json:"coins"`
	RoleID         string `json:"role_id,omitempty"`
	RoleName       string `json:"role_name,omitempty"`
	RemainingAfter int    `json:"remaining_after,omitempty"`
}

type RolePrize struct {
	RoleID           string `json:"role_id"`
	RoleName         string `json:"role_name"`
	MaxWinners       int    `json:"max_winners"`
	RemainingWinners int    `json:"remaining_winners"`
}

type Purchase struct {
	ID            string    `json:"id"`
	BoxCount      int       `json:"box_count"`
	TotalCost     int64     `json:"total_cost"`
	NetCoinChange int64     `json:"net_coin_change"`
	Outcomes      []Outcome `json:"outcomes"`
	CreatedAt     string    `json:"created_at"`
}

type LootboxConfig struct {
	Price           *int64 `json:"price"`
	WinCoinMin      *int64 `json:"win_coin_min"`
	WinCoinMax      *int64 `json:"win_coin_max"`
	LossCoinMin     *int64 `json:"loss_coin_min"`
	LossCoinMax     *int64 `json:"loss_coin_max"`
	CooldownSeconds *int64 `json:"cooldown_seconds"`
	PrizeChannelID  string `json:"prize_channel_id,omitempty"`
	AuditChannelID  string `json:"audit_channel_id,omitempty"`
	MaxPrizeTypes   *int64 `json:"max_prize_types"`
	PurchaseLimit   *int64 `json:"purchase_limit"`
	Configured      bool   `json:"configured"`
}

type BuyLootboxRequest struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`
	Amount      int    `json:"amount"`
}

type BuyLootboxResponse struct {
	Outcomes      []Outcome `json:"outcomes"`
	TotalCost     int64     `json:"total_cost"`
	NetCoinChange int64     `json:"net_coin_change"`
	NewBalance    int64     `json:"new_balance"`
}

type GetStockRequest struct {
	CommunityID string `form:"community_id"`
}

// GetStockResponse is the public storefront view: the configured price
// and cooldown alongside what prizes are still in stock. Config fields
// stay nil until they have been set.
type GetStockResponse struct {
	Price           *int64      `json:"price"`
	CooldownSeconds *int64      `json:"cooldown_seconds"`
	PurchaseLimit   *int64      `json:"purchase_limit"`
	WinChance       float64     `json:"win_chance"`
	PrizeChance     float64     `json:"prize_chance"`
	Prizes          []RolePrize `json:"prizes"`
}

type GetLootboxConfigRequest struct {
	CommunityID string `form:"community_id"`
}

type GetLootboxConfigResponse struct {
	Config LootboxConfig `json:"config"`
}

// SetLootboxConfigRequest carries a partial update; nil fields keep their
// stored value. A purchase limit of zero means unlimited.
type SetLootboxConfigRequest struct {
	CommunityID     string `json:"community_id"`
	Price           *int64 `json:"price"`
	WinCoinMin      *int64 `json:"win_coin_min"`
	WinCoinMax      *int64 `json:"win_coin_max"`
	LossCoinMin     *int64 `json:"loss_coin_min"`
	LossCoinMax     *int64 `json:"loss_coin_max"`
	CooldownSeconds *int64 `json:"cooldown_seconds"`
	PrizeChannelID  *string `json:"prize_channel_id"`
	AuditChannelID  *string `json:"audit_channel_id"`
	MaxPrizeTypes   *int64 `json:"max_prize_types"`
	PurchaseLimit   *int64 `json:"purchase_limit"`
}

type SetLootboxConfigResponse struct{}

type AddPrizeRequest struct {
	CommunityID string `json:"community_id"`
	RoleID      string `json:"role_id"`
	RoleName    string `json:"role_name"`
	MaxWinners  int    `json:"max_winners"`
}

type AddPrizeResponse struct{}

type RemovePrizeRequest struct {
	CommunityID string `json:"community_id"`
	RoleID      string `json:"role_id"`
}

type RemovePrizeResponse struct{}

type GetStatsRequest struct {
	CommunityID string `form:"community_id"`
}

type TopSpender struct {
	UserID string `json:"user_id"`
	Spent  int64  `json:"spent"`
}

type GetStatsResponse struct {
	TotalPurchases int64        `json:"total_purchases"`
	TotalBoxes     int64        `json:"total_boxes"`
	TotalSpent     int64        `json:"total_spent"`
	NetCoinChange  int64        `json:"net_coin_change"`
	UniqueBuyers   int64        `json:"unique_buyers"`
	CoinWins       int64        `json:"coin_wins"`
	RoleWins       int64        `json:"role_wins"`
	Losses         int64        `json:"losses"`
	CoinsWon       int64        `json:"coins_won"`
	CoinsLost      int64        `json:"coins_lost"`
	TopSpenders    []TopSpender `json:"top_spenders"`
}

type GetPurchaseHistoryRequest struct {
	CommunityID string `form:"community_id"`
	UserID      string `form:"user_id"`
	Offset      int    `form:"offset"`
	Limit       int    `form:"limit"`
}

type GetPurchaseHistoryResponse struct {
	Purchases []Purchase `json:"purchases"`
}

type SetLockoutRequest struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`

	// DurationSeconds of zero clears the lockout.
	DurationSeconds int64 `json:"duration_seconds"`
}

type SetLockoutResponse struct{}

type ResetRequest struct {
	CommunityID string `json:"community_id"`
}

type ResetResponse struct{}
