// internal/service/order/domain/state.go
package domain

// State 定义了一条订单消息在消费端的处理状态
type State string

const (
	StateReceived     State = "RECEIVED"
	StateValidating   State = "VALIDATING"
	StateRetryWait    State = "RETRY_WAIT"
	StateSuccess      State = "SUCCESS"       // 终态，提交 offset
	StateDeadLettered State = "DEAD_LETTERED" // 终态，已投递死信，提交 offset
	StateRescheduled  State = "RESCHEDULED"   // 已转交重试主题，提交 offset
	StateAborted      State = "ABORTED"       // 处理被中断，不提交，等待重新投递
)

// ShouldAck 表示这个状态下是否可以提交原消息的 offset
func (s State) ShouldAck() bool {
	switch s {
	case StateSuccess, StateDeadLettered, StateRescheduled:
		return true
	default:
		return false
	}
}
