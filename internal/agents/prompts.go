package agents

import (
	"fmt"
	"strings"
)

func listLiteral(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func executionPrompt(objective string, context []string, task string) string {
	return fmt.Sprintf("You are an AI who performs one task based on the following objective: %s.\n"+
		"Take into account these previously completed tasks: %s\n"+
		"Your task: %s\n"+
		"Response:", objective, listLiteral(context), task)
}

func creationPrompt(objective, result, taskDescription string, incomplete []string) string {
	return fmt.Sprintf("You are an task creation AI that uses the result of an execution agent to create new tasks "+
		"with the following objective: %s, The last completed task has the result: %s. "+
		"This result was based on this task description: %s. These are incomplete tasks: %s. "+
		"Based on the result, create new tasks to be completed by the AI system that do not overlap with incomplete tasks. "+
		"Return the tasks as an array.", objective, result, taskDescription, strings.Join(incomplete, ", "))
}

func prioritizationPrompt(objective string, taskNames []string, nextTaskID int64) string {
	return fmt.Sprintf("You are an task prioritization AI tasked with cleaning the formatting of and reprioritizing "+
		"the following tasks: %s. Consider the ultimate objective of your team:%s. Do not remove any tasks. "+
		"Return the result as a numbered list, like:\n"+
		"#. First task\n"+
		"#. Second task\n"+
		"Start the task list with number %d.", listLiteral(taskNames), objective, nextTaskID)
}
