package agent

// decisionFormatPrompt instructs the model to answer with exactly one
// decision object per turn.
const decisionFormatPrompt = `Respond with a single JSON object and nothing else.

To use a tool:
{"thought": "<your reasoning>", "action": {"tool": "<tool name>", "input": {<arguments>}}, "is_final": false}

To give the final answer:
{"thought": "<your reasoning>", "is_final": true, "final_answer": "<the answer>"}`

// finalIterationPrompt is injected when the loop enters its last iteration.
const finalIterationPrompt = `This is your final iteration. You must respond with is_final: true and your best final answer now.`

// routingFormatPrompt instructs the model to answer with a routing decision.
const routingFormatPrompt = `Respond with a single JSON object and nothing else:
{"agent": "<name of the best suited agent>", "reasoning": "<why>"}

Pick exactly one agent from the list. Do not invent agent names.`

// supervisorFormatPrompt instructs the model to answer with an orchestration
// decision.
const supervisorFormatPrompt = `Respond with a single JSON object and nothing else.

On your first turn, declare the sub-goals of the plan:
{"thought": "<reasoning>", "sub_goals": ["<goal 1>", "<goal 2>"], "agent_to_invoke": "<agent>", "agent_task": "<task for that agent>", "sub_goal_id": "1", "is_final": false}

To delegate the next sub-task:
{"thought": "<reasoning>", "agent_to_invoke": "<agent>", "agent_task": "<task for that agent>", "sub_goal_id": "<goal number>", "is_final": false}

When the overall goal is achieved:
{"thought": "<reasoning>", "is_final": true, "final_answer": "<the combined answer>"}

Only delegate to agents from the list. Do not invent agent names.`
