package agent

// State is a node of the turn graph.
type State int

const (
	StateCheckCache State = iota
	StateValidate
	StateAgent
	StateDispatchTools
	StateSummarize
	StateFinalize
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateCheckCache:
		return "check_cache"
	case StateValidate:
		return "validate"
	case StateAgent:
		return "agent"
	case StateDispatchTools:
		return "dispatch_tools"
	case StateSummarize:
		return "summarize"
	case StateFinalize:
		return "finalize"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}
