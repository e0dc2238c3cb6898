package agent

import "github.com/hupe1980/actormesh/core"

// TaskMessage delivers a task to an agent's mailbox.
type TaskMessage struct {
	Task core.Task
}

// Kind implements actor.Message.
func (TaskMessage) Kind() string { return "agent.task" }

// ResponseMessage carries an agent's terminal response back to the requester.
type ResponseMessage struct {
	Response core.Response
}

// Kind implements actor.Message.
func (ResponseMessage) Kind() string { return "agent.response" }
