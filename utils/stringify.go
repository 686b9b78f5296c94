package utils

import (
	"github.com/fatih/color"
)

var funColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
}
var nodeColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
}
var outcomeColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
}
var okColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
}
var faintColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
}

// FunString renders a function name.
func FunString(name string) string {
	return funColor(name)
}

// NodeString renders a control-flow node of a function.
func NodeString(fun string, id int, stmt string) string {
	return funColor(fun) + ":" + nodeColor(id) + " " + faintColor(stmt)
}

// OutcomeString renders the outcome of a call-site resolution. Successful
// outcomes are rendered green, failures red.
func OutcomeString(outcome string, ok bool) string {
	if ok {
		return okColor(outcome)
	}
	return outcomeColor(outcome)
}
