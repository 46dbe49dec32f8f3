package event

const (
	EventRoundBetting  = "round.betting"
	EventRoundReveal   = "round.reveal"
	EventRoundFinished = "round.finished"
	EventBetPlaced     = "bet.placed"
)
