package delegation

// State is a step of a delegation attempt.
type State int

const (
	StateIdle State = iota
	StateResolvingSender
	StateSimulating
	StateRefiningFee
	StateBuilding
	StateSigning
	StateBroadcasting
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateResolvingSender: "resolving_sender",
	StateSimulating:      "simulating",
	StateRefiningFee:     "refining_fee",
	StateBuilding:        "building",
	StateSigning:         "signing",
	StateBroadcasting:    "broadcasting",
	StateSucceeded:       "succeeded",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether an attempt in this state is finished.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}
