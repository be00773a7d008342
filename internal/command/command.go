package command

import "context"

// Callback data values shared between the bot handlers and the digest
// keyboards produced by the scheduler.
const (
	CallbackMainMenu       = "main_menu"
	CallbackLoadJSON       = "load_json"
	CallbackLoadGoogle     = "load_google"
	CallbackParseAmount    = "parse_amount"
	CallbackParseAll       = "parse_all"
	CallbackCancelParsing  = "cancel_parsing"
	CallbackAccounts       = "accounts"
	CallbackAddAccount     = "add_account"
	CallbackDeleteAccount  = "delete_account"
	CallbackRegularParsing = "regular_parsing"
	CallbackRegularToggle  = "regular_toggle"
	CallbackRegularPeriod  = "regular_period"
	CallbackRegularRunNow  = "regular_run_now"
	CallbackMonitorAcc     = "monitor_accounts"
	CallbackMonitorAccTgl  = "monitor_accounts_toggle"
	CallbackMonitorAccPer  = "monitor_accounts_period"
	CallbackMonitorPosts   = "monitor_posts"
	CallbackMonitorPostTgl = "monitor_posts_toggle"
	CallbackMonitorPostPer = "monitor_posts_period"
	CallbackDeleteInvalid  = "delete_invalid"
)

type Client interface {
	// HandleUpdates consumes bot updates until ctx is cancelled.
	HandleUpdates(ctx context.Context) error
}
