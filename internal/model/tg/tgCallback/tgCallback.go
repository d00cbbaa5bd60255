package tgCallback

// Callback button uniques. Telebot routes "\f<unique>|<payload>" to the handler
// registered for "\f<unique>", so they must match [-\w]+.
const (
	PositionsPage    string = "positions_page" // payload: page number
	RefreshForecast  string = "refresh_forecast"
	ShowRebalance    string = "show_rebalance"
	ResetPreferences string = "reset_preferences"
)

// Endpoint is the handler key for a callback unique.
func Endpoint(unique string) string {
	return "\f" + unique
}
