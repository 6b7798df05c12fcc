package enums

// GatewayEventType names the gateway events the worker consumes.
type GatewayEventType string

const (
	EventReactionAdd    GatewayEventType = "gateway.reaction_add"
	EventReactionRemove GatewayEventType = "gateway.reaction_remove"
)

// String implements fmt.Stringer.
func (g GatewayEventType) String() string {
	return string(g)
}
