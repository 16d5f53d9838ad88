package markdown

import (
	"strings"
	"testing"

	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

const sampleSkill = `# skill: greet-user

## version
1.0.0

## description
Greets a user by name and records their mood.

## intent
- greet
- greet
- log-mood

## input
` + "```yaml" + `
name:
  type: string
  required: true
  description: "the user's name"
mood: string
` + "```" + `

## steps

### step: say-hello
**type**: template
` + "```template" + `
Hello {{name}}, you seem {{mood}}!
` + "```" + `

### step: ask-confirmation
**varName**: confirmed
` + "```yaml" + `
message: "Did that sound right?"
input_schema:
  ok:
    type: boolean
    required: true
` + "```" + `

### step: log-it
**tool**: logger
**when**: confirmed.ok == true
` + "```yaml" + `
text: "{{say-hello}}"
` + "```" + `

## output
` + "```yaml" + `
greeting:
  type: string
  required: true
` + "```" + `

## x-owner
platform-team
`

func TestParseValidSkill(t *testing.T) {
	sk, err := Parse([]byte(sampleSkill))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sk.ID != "greet-user" {
		t.Fatalf("got id %q", sk.ID)
	}
	if sk.Version != "1.0.0" {
		t.Fatalf("got version %q", sk.Version)
	}
	if len(sk.Intents) != 2 {
		t.Fatalf("expected deduped intents, got %v", sk.Intents)
	}
	if len(sk.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(sk.Steps))
	}

	hello, ok := sk.GetStep("say-hello")
	if !ok || hello.Kind != schema.KindTemplate {
		t.Fatalf("expected say-hello to be TEMPLATE, got %+v", hello)
	}

	ask, ok := sk.GetStep("ask-confirmation")
	if !ok || ask.Kind != schema.KindAwait {
		t.Fatalf("expected ask-confirmation to be AWAIT, got %+v", ask)
	}
	if ask.VarName != "confirmed" {
		t.Fatalf("expected varName confirmed, got %q", ask.VarName)
	}

	logStep, ok := sk.GetStep("log-it")
	if !ok || logStep.Kind != schema.KindTool {
		t.Fatalf("expected log-it to be TOOL, got %+v", logStep)
	}
	if logStep.When == nil {
		t.Fatal("expected a parsed when condition")
	}

	if !sk.InputSchema["name"].Required {
		t.Fatal("expected name to be required")
	}
	if !sk.InputSchema["mood"].Required {
		t.Fatal("expected shorthand input fields to default required")
	}
	if sk.OutputContract.Fields["greeting"].Type != schema.TypeString {
		t.Fatalf("got %+v", sk.OutputContract.Fields["greeting"])
	}
	if sk.Extensions["x-owner"] != "platform-team" {
		t.Fatalf("got extensions %v", sk.Extensions)
	}
}

func TestParseMissingH1Fails(t *testing.T) {
	_, err := Parse([]byte("## steps\n### step: a\n```template\nhi\n```\n"))
	if err == nil {
		t.Fatal("expected an error for missing H1")
	}
}

func TestParseRejectsComposeStep(t *testing.T) {
	src := `# skill: legacy
## steps
### step: old
**type**: compose
` + "```yaml" + `
x: 1
` + "```" + `
`
	_, err := Parse([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "COMPOSE") {
		t.Fatalf("expected a COMPOSE rejection error, got %v", err)
	}
}

func TestParseDuplicateStepNameFails(t *testing.T) {
	src := `# skill: dup
## steps
### step: a
` + "```template" + `
x
` + "```" + `
### step: a
` + "```template" + `
y
` + "```" + `
`
	_, err := Parse([]byte(src))
	if err == nil {
		t.Fatal("expected a duplicate step name error")
	}
}

func TestParseReferencesDirective(t *testing.T) {
	src := `# skill: refs
<!-- reference: docs/notes.md -->
## steps
### step: a
` + "```template" + `
x
` + "```" + `
`
	sk, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref, ok := sk.References["docs/notes.md"]
	if !ok || ref.InferredType != "markdown" {
		t.Fatalf("got %+v", sk.References)
	}
}

func TestParseUnknownKindFails(t *testing.T) {
	src := `# skill: bad
## steps
### step: mystery
no attributes or fences here
`
	_, err := Parse([]byte(src))
	if err == nil {
		t.Fatal("expected an error when a step's kind cannot be inferred")
	}
}

func TestParseNoStepsFails(t *testing.T) {
	_, err := Parse([]byte("# skill: empty\n## description\nnothing here\n"))
	if err == nil {
		t.Fatal("expected an error for a skill with no steps")
	}
}
