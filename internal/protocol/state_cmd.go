package protocol

// CMD (client -> server): a batch of commands to apply at the next tick
// boundary, in order.
type CmdMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick,omitempty"`
	Commands        []Command `json:"commands"`
}

// Command kinds.
const (
	CmdPlace    = "PLACE"
	CmdDemolish = "DEMOLISH"
)

type Command struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// PLACE
	DefID    string `json:"def_id,omitempty"`
	Anchor   [2]int `json:"anchor,omitempty"`
	Rotation int    `json:"rotation,omitempty"` // degrees or quarter turns

	// DEMOLISH
	StructureID string `json:"structure_id,omitempty"`
}

// Event is a loosely typed tick event. Every event carries "t" (tick) and
// "type"; command results also carry "ref" (the command id) and "ok".
type Event map[string]interface{}

// STATE (server -> client): the authoritative view after one tick.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Digest          string `json:"digest"`

	Structures []StructureState `json:"structures"`
	Events     []Event          `json:"events,omitempty"`
}

type StructureState struct {
	ID       string `json:"id"`
	DefID    string `json:"def_id"`
	Anchor   [2]int `json:"anchor"`
	Rotation int    `json:"rotation"` // degrees

	State    string  `json:"state"`
	Progress float64 `json:"progress"`

	Input  []ResourceCount `json:"input,omitempty"`
	Output []ResourceCount `json:"output,omitempty"`

	CycleCount uint64 `json:"cycle_count"`
}

type ResourceCount struct {
	Resource string `json:"resource"`
	Count    int    `json:"count"`
}
