package kafka

// Topic names are config-driven (transferengine/internal/config.BusConfig);
// these constants only name the roles spec ss4.4/ss6 assign to each topic.
const (
	RoleIngress = "ingress"
	RoleLedger  = "ledger"
	RoleDLQ     = "dlq"
)
