package enums

// ActivityAction is the verb recorded in the activity log.
type ActivityAction string

const (
	ActivityCreate   ActivityAction = "create"
	ActivityUpdate   ActivityAction = "update"
	ActivityDelete   ActivityAction = "delete"
	ActivityReceive  ActivityAction = "receive"
	ActivityCancel   ActivityAction = "cancel"
	ActivityTransfer ActivityAction = "transfer"
	ActivityAdjust   ActivityAction = "adjust"
)

// ActivityEntityType names the kind of record an activity entry points at.
type ActivityEntityType string

const (
	ActivityEntityWallet        ActivityEntityType = "wallet"
	ActivityEntityPurchaseOrder ActivityEntityType = "purchase_order"
	ActivityEntityExchangeRate  ActivityEntityType = "exchange_rate"
)
