package reply

// State 是单次请求状态机的阶段，不持久化。
type State int

const (
	StateIdle State = iota
	StateResolvingModel
	StateResolvingCredential
	StateBuildingPrompt
	StateCalling
	StatePostProcessing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingModel:
		return "resolving_model"
	case StateResolvingCredential:
		return "resolving_credential"
	case StateBuildingPrompt:
		return "building_prompt"
	case StateCalling:
		return "calling"
	case StatePostProcessing:
		return "post_processing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal 报告是否为终态。
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
