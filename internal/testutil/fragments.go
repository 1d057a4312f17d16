package testutil

import "github.com/hupe1980/agentloop/model"

// TextFragment is a content-only fragment.
func TextFragment(text string) model.Fragment {
	return model.Fragment{ContentDelta: text}
}

// CallFragment is a fragment carrying one tool call delta.
func CallFragment(index int, id, name, args string) model.Fragment {
	return model.Fragment{ToolCallDeltas: []model.ToolCallDelta{{
		Index:    index,
		ID:       id,
		Function: model.FunctionDelta{Name: name, Arguments: args},
	}}}
}
