package listops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// itemString renders a value for a prompt: strings verbatim, nil as empty,
// everything else as compact JSON.
func itemString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.RawMessage:
		return string(x)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	s := strings.TrimSuffix(buf.String(), "\n")
	if s == "null" {
		return ""
	}
	return s
}

// withInstructions appends caller instructions on their own line.
func withInstructions(instructions string) string {
	if instructions == "" {
		return ""
	}
	return "\n" + instructions
}

func itemPrompt(index, length int, item any) string {
	return fmt.Sprintf("<INDEX>\n%d of %d\n\n<ITEM>\n%s", index, length, itemString(item))
}

const classifySystemPrompt = `You are an expert at classifying items in a list.

<CATEGORIES>
%s

<GOAL>
%s

<INSTRUCTIONS>
Given an <ITEM> classify the item using the above <CATEGORIES> based upon the provided <GOAL>.
Return your classification as a JSON <CLASSIFICATION> object.%s

<CLASSIFICATION>
{"explanation": "<explanation supporting your classification>", "category": "<category assigned>"}`

const binaryClassifySystemPrompt = `You are an expert at classifying items in a list.

<GOAL>
%s

<INSTRUCTIONS>
Given an <ITEM> determine if it matches the provided <GOAL>.
Return your classification as a JSON <CLASSIFICATION> object.%s

<CLASSIFICATION>
{"explanation": "<explanation supporting your classification>", "matches": <true or false>}`

const filterSystemPrompt = `You are an expert at filtering items in a list.

<GOAL>
%s

<INSTRUCTIONS>
Determine if the <ITEM> should be removed from the list using provided <GOAL>.
Use the <DECISION> schema below to return your decisions as a JSON object.%s

<DECISION>
{"explanation": "<explanation supporting your decision to remove item>", "remove_item": <true or false>}`

const sortSystemPrompt = `You are an expert in sorting a list of items.

<GOAL>
%s

<INSTRUCTIONS>
Determine if <ITEM_A> should be sorted BEFORE, EQUAL, or AFTER <ITEM_B> based upon the stated <GOAL>.
Use the <DECISION> schema below to return your decisions as a JSON object.%s

<DECISION>
{"explanation": "<explanation supporting your decision>", "sort_item_a": "<BEFORE, EQUAL, or AFTER>"}`

const sortItemPrompt = "<ITEM_A>\n%s\n\n<ITEM_B>\n%s"

const reduceSystemPrompt = `You are an expert at combining and reducing items in a list.

<GOAL>
%s

<INSTRUCTIONS>
Given an <ITEM> return a new JSON <OUTPUT> object that combines the item with the current output to achieve the <GOAL>.%s

<OUTPUT>
%s`

const mapShapeSystemPrompt = `You are an expert at mapping list items from one type to another.

<GOAL>
%s

<INSTRUCTIONS>
Given an <ITEM> return a new JSON <OUTPUT> object that maps the item to the shape specified by the <GOAL>.%s

<OUTPUT>
%s`

const mapSchemaSystemPrompt = `You are an expert at mapping list items from one type to another.

<GOAL>
%s

<INSTRUCTIONS>
Given an <ITEM> map the item to the provided JSON shape using the instructions specified by the <GOAL>.%s`

const projectSystemPrompt = `You are an expert at re-formatting a list of items using a template.

<TEMPLATE>
%s

<GOAL>
%s

<INSTRUCTIONS>
Use the <TEMPLATE> above to reformat the <ITEM> using the directions in the provided <GOAL>.%s`

const summarizeSystemPrompt = `You are an expert at summarizing text.

<GOAL>
%s

<INSTRUCTIONS>
Given an <ITEM> summarize it using the directions in the provided <GOAL>.
When a <SUMMARY_SO_FAR> is given, return a summary that also covers it.
Return your summary as a JSON <SUMMARIZATION> object.
Ensure that the summary portion is a string.%s

<SUMMARIZATION>
{"explanation": "<explanation supporting your summarization>", "summary": "<item summary as text>"}`

const chainOfThoughtSystemPrompt = `<INSTRUCTIONS>
Answer the users question using the JSON <OUTPUT> structure below.%s

<OUTPUT>
{"explanation": "<explain your reasoning>", "answer": "<the answer>"}`

const groundedSystemPrompt = `<CONTEXT>
%s

<INSTRUCTIONS>
Base your answer only on the information provided in the above <CONTEXT>.
Return your answer using the JSON <OUTPUT> below.
Do not directly mention that you're using the context in your answer.%s

<OUTPUT>
{"explanation": "<explain your reasoning>", "answer": "<the answer>"}`

const generateObjectSystemPrompt = `%s<INSTRUCTIONS>
Return a JSON object based on the users directions.%s`
