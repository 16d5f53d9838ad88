// Package markdown parses a Skill document (the Markdown authoring format,
// see SPEC §6) into a *schema.Skill. It is tolerant of cosmetic variation
// (case-insensitive headings, flexible list styles) but strict about
// semantics: structural problems fail the whole parse with a 1-based line
// number.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/skillrun/skillrun/pkg/kernel/cond"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// ParseError carries a 1-based line number (0 when not known) alongside a
// human-readable explanation.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

var referencePattern = regexp.MustCompile(`(?i)<!--\s*reference:\s*([^\s>]+?)\s*-->`)

var attrLine = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.*)$`)

var h1Pattern = regexp.MustCompile(`(?i)^skill:\s*(.+)$`)
var h3StepPattern = regexp.MustCompile(`(?i)^step:\s*(.+)$`)

// Parse converts a Skill document into a *schema.Skill, or returns a
// *ParseError describing the earliest-encountered problem.
func Parse(source []byte) (*schema.Skill, error) {
	doc := goldmark.DefaultParser().Parse(gmtext.NewReader(source))

	p := &parseState{
		source:       source,
		inputFields:  map[string]schema.FieldSpec{},
		outputFields: map[string]schema.FieldSpec{},
		extensions:   map[string]string{},
		stepNames:    map[string]bool{},
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || p.err != nil {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if err := p.onHeading(node); err != nil {
				p.err = err
				return ast.WalkStop, nil
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			p.onFence(node)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			p.onParagraph(node)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			p.onListItem(node)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.skillID == "" {
		return nil, &ParseError{Line: 1, Message: "expected an H1 heading of the form 'skill: <id>'"}
	}
	if err := p.finishStep(); err != nil {
		return nil, err
	}
	if err := p.finishSection(); err != nil {
		return nil, err
	}

	p.applyReferences()

	if len(p.steps) == 0 {
		return nil, &ParseError{Message: fmt.Sprintf("skill %q: must declare at least one step", p.skillID)}
	}

	sk, err := schema.New(p.skillID, p.version, p.description.String(), p.intents,
		p.inputFields, p.inputOrder, p.steps,
		schema.OutputContract{Fields: p.outputFields, Order: p.outputOrder},
		p.references, p.extensions)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	return sk, nil
}

// ---------------------------------------------------------------------------
// Parse state
// ---------------------------------------------------------------------------

type stepDraft struct {
	name      string
	line      int
	attrs     map[string]string
	fences    map[string]string // language -> content, last wins
	whenFence string
}

type parseState struct {
	source []byte
	err    error

	skillID     string
	version     string
	description strings.Builder

	intents    []string
	intentSeen map[string]bool

	inputFields  map[string]schema.FieldSpec
	inputOrder   []string
	outputFields map[string]schema.FieldSpec
	outputOrder  []string

	steps     []schema.Step
	stepNames map[string]bool

	extensions map[string]string
	references map[string]schema.Reference

	section string // normalised current H2 name
	curStep *stepDraft

	pendingSectionFence string // raw fenced content awaiting input/output parsing
}

func normalizeHeading(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (p *parseState) onHeading(n *ast.Heading) error {
	text := extractText(n, p.source)
	line := lineNumber(p.source, n) + 1

	switch n.Level {
	case 1:
		m := h1Pattern.FindStringSubmatch(strings.TrimSpace(text))
		if m == nil {
			return &ParseError{Line: line, Message: "expected H1 of the form 'skill: <id>'"}
		}
		if err := p.finishStep(); err != nil {
			return err
		}
		p.skillID = strings.TrimSpace(m[1])
		p.section = ""
	case 2:
		if err := p.finishStep(); err != nil {
			return err
		}
		if err := p.finishSection(); err != nil {
			return err
		}
		p.section = normalizeHeading(text)
	case 3:
		if p.section != "steps" {
			return nil
		}
		m := h3StepPattern.FindStringSubmatch(strings.TrimSpace(text))
		if m == nil {
			return &ParseError{Line: line, Message: "expected H3 of the form 'step: <name>'"}
		}
		if err := p.finishStep(); err != nil {
			return err
		}
		name := strings.TrimSpace(m[1])
		if name == "" {
			return &ParseError{Line: line, Message: "step name must not be empty"}
		}
		if p.stepNames[name] {
			return &ParseError{Line: line, Message: fmt.Sprintf("duplicate step name %q", name)}
		}
		p.curStep = &stepDraft{name: name, line: line, attrs: map[string]string{}, fences: map[string]string{}}
	}
	return nil
}

func (p *parseState) onParagraph(n *ast.Paragraph) {
	text := extractText(n, p.source)
	if text == "" {
		return
	}
	if p.curStep != nil {
		for _, line := range strings.Split(text, "\n") {
			if m := attrLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				p.curStep.attrs[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
			}
		}
		return
	}
	switch p.section {
	case "description":
		if p.description.Len() > 0 {
			p.description.WriteString("\n")
		}
		p.description.WriteString(text)
	case "version":
		if p.version == "" {
			p.version = strings.TrimSpace(text)
		}
	default:
		if strings.HasPrefix(p.section, "x-") {
			cur := p.extensions[p.section]
			if cur != "" {
				cur += "\n"
			}
			p.extensions[p.section] = cur + text
		}
	}
}

func (p *parseState) onListItem(n *ast.ListItem) {
	if p.curStep != nil || p.section != "intent" {
		return
	}
	text := extractText(n, p.source)
	if text == "" {
		return
	}
	if p.intentSeen == nil {
		p.intentSeen = map[string]bool{}
	}
	if p.intentSeen[text] {
		return
	}
	p.intentSeen[text] = true
	p.intents = append(p.intents, text)
}

func (p *parseState) onFence(n *ast.FencedCodeBlock) {
	lang := strings.ToLower(strings.TrimSpace(string(n.Language(p.source))))
	content := extractCodeContent(n, p.source)

	if p.curStep != nil {
		p.curStep.fences[lang] = content
		return
	}
	switch p.section {
	case "input", "input_schema", "output", "output_schema":
		p.pendingSectionFence = content
	}
}

// finishSection converts a buffered input/output fenced block once its H2
// section has fully been read.
func (p *parseState) finishSection() error {
	if p.pendingSectionFence == "" {
		return nil
	}
	content := p.pendingSectionFence
	p.pendingSectionFence = ""

	switch p.section {
	case "input", "input_schema":
		fields, order, err := parseFieldMap(content, true)
		if err != nil {
			return &ParseError{Message: fmt.Sprintf("input schema: %s", err)}
		}
		p.inputFields, p.inputOrder = fields, order
	case "output", "output_schema":
		fields, order, err := parseFieldMap(content, false)
		if err != nil {
			return &ParseError{Message: fmt.Sprintf("output schema: %s", err)}
		}
		p.outputFields, p.outputOrder = fields, order
	}
	return nil
}

// finishStep finalises the step currently under construction, if any.
func (p *parseState) finishStep() error {
	if p.curStep == nil {
		return nil
	}
	d := p.curStep
	p.curStep = nil

	if _, ok := d.fences["compose"]; ok || strings.EqualFold(d.attrs["type"], "compose") {
		return &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: the COMPOSE step kind is no longer supported", d.name)}
	}

	step, err := buildStep(d)
	if err != nil {
		return err
	}
	p.stepNames[d.name] = true
	p.steps = append(p.steps, *step)
	return nil
}

func (p *parseState) applyReferences() {
	p.references = map[string]schema.Reference{}
	for _, m := range referencePattern.FindAllStringSubmatch(string(p.source), -1) {
		path := m[1]
		p.references[path] = schema.Reference{Path: path, InferredType: inferReferenceType(path)}
	}
}

func inferReferenceType(path string) string {
	switch {
	case strings.HasSuffix(path, ".md"):
		return "markdown"
	case strings.HasSuffix(path, ".json"):
		return "json"
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return "yaml"
	case strings.HasSuffix(path, ".txt"):
		return "text"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Step construction
// ---------------------------------------------------------------------------

func buildStep(d *stepDraft) (*schema.Step, error) {
	kind, err := inferKind(d)
	if err != nil {
		return nil, err
	}

	st := &schema.Step{Name: d.name, Kind: kind, VarName: d.attrs["varname"]}

	if whenSrc, ok := whenSource(d); ok {
		expr, err := cond.Parse(whenSrc)
		if err != nil {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: %s", d.name, err)}
		}
		st.WhenExpr = whenSrc
		st.When = expr
	}

	switch kind {
	case schema.KindTool:
		toolName := d.attrs["tool"]
		if toolName == "" {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: TOOL steps require a tool attribute", d.name)}
		}
		var inputTemplate map[string]any
		var outputFields []string
		if raw, ok := d.fences["yaml"]; ok {
			body := map[string]any{}
			if err := yaml.Unmarshal([]byte(raw), &body); err != nil {
				return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: invalid yaml: %s", d.name, err)}
			}
			if os, ok := body["output_schema"]; ok {
				delete(body, "output_schema")
				if m, ok := os.(map[string]any); ok {
					for k := range m {
						outputFields = append(outputFields, k)
					}
				}
			}
			inputTemplate = body
		}
		st.Tool = &schema.ToolStepConfig{ToolName: toolName, InputTemplate: inputTemplate, OutputFields: outputFields}

	case schema.KindPrompt:
		tmpl := d.fences["prompt"]
		if tmpl == "" {
			tmpl = d.fences["template"]
		}
		if strings.TrimSpace(tmpl) == "" {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: PROMPT steps require a non-empty template", d.name)}
		}
		st.Prompt = &schema.PromptStepConfig{Template: tmpl}

	case schema.KindTemplate:
		tmpl := d.fences["template"]
		if tmpl == "" {
			tmpl = d.fences["prompt"]
		}
		if strings.TrimSpace(tmpl) == "" {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: TEMPLATE steps require a non-empty template", d.name)}
		}
		st.Template = &schema.TemplateStepConfig{Template: tmpl}

	case schema.KindAwait:
		raw, ok := d.fences["yaml"]
		if !ok {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: AWAIT steps require a yaml block with message and input_schema", d.name)}
		}
		body := map[string]any{}
		if err := yaml.Unmarshal([]byte(raw), &body); err != nil {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: invalid yaml: %s", d.name, err)}
		}
		message, _ := body["message"].(string)
		message = strings.TrimSpace(message)
		if message == "" {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: AWAIT steps require a non-blank message", d.name)}
		}
		if len(message) > 1000 {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: AWAIT message exceeds 1000 characters", d.name)}
		}
		schemaRaw, _ := yaml.Marshal(body["input_schema"])
		fields, order, err := parseFieldMap(string(schemaRaw), true)
		if err != nil || len(fields) == 0 {
			return nil, &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: AWAIT steps require a non-empty input_schema", d.name)}
		}
		st.Await = &schema.AwaitStepConfig{Message: message, InputSchema: fields}
		_ = order
	}

	return st, nil
}

func whenSource(d *stepDraft) (string, bool) {
	if v, ok := d.attrs["when"]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if raw, ok := d.fences["when"]; ok {
		body := map[string]any{}
		if err := yaml.Unmarshal([]byte(raw), &body); err == nil {
			if expr, ok := body["expr"].(string); ok && strings.TrimSpace(expr) != "" {
				return expr, true
			}
		}
	}
	return "", false
}

func inferKind(d *stepDraft) (schema.StepKind, error) {
	if t, ok := d.attrs["type"]; ok && t != "" {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "tool":
			return schema.KindTool, nil
		case "prompt":
			return schema.KindPrompt, nil
		case "await":
			return schema.KindAwait, nil
		case "template":
			return schema.KindTemplate, nil
		default:
			return "", &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: unknown type %q", d.name, t)}
		}
	}
	if d.attrs["tool"] != "" {
		return schema.KindTool, nil
	}
	if _, ok := d.fences["prompt"]; ok {
		return schema.KindPrompt, nil
	}
	if raw, ok := d.fences["yaml"]; ok {
		body := map[string]any{}
		if err := yaml.Unmarshal([]byte(raw), &body); err == nil {
			_, hasMsg := body["message"]
			_, hasSchema := body["input_schema"]
			if hasMsg && hasSchema {
				return schema.KindAwait, nil
			}
		}
	}
	if len(d.fences) > 0 {
		return schema.KindTemplate, nil
	}
	return "", &ParseError{Line: d.line, Message: fmt.Sprintf("step %q: cannot infer step kind", d.name)}
}

// ---------------------------------------------------------------------------
// Field map (input/output schema, await input_schema) parsing
// ---------------------------------------------------------------------------

func parseFieldMap(yamlBody string, requiredByDefault bool) (map[string]schema.FieldSpec, []string, error) {
	var raw yaml.Node
	if strings.TrimSpace(yamlBody) == "" {
		return map[string]schema.FieldSpec{}, nil, nil
	}
	if err := yaml.Unmarshal([]byte(yamlBody), &raw); err != nil {
		return nil, nil, err
	}
	if len(raw.Content) == 0 {
		return map[string]schema.FieldSpec{}, nil, nil
	}
	mapping := raw.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return map[string]schema.FieldSpec{}, nil, nil
	}

	fields := map[string]schema.FieldSpec{}
	var order []string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value
		valNode := mapping.Content[i+1]
		fs, err := decodeFieldSpec(valNode, requiredByDefault)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = fs
		order = append(order, name)
	}
	return fields, order, nil
}

func decodeFieldSpec(n *yaml.Node, requiredByDefault bool) (schema.FieldSpec, error) {
	// Shorthand: a bare scalar is the type name.
	if n.Kind == yaml.ScalarNode {
		return schema.FieldSpec{Type: schema.FieldType(n.Value), Required: requiredByDefault}, nil
	}
	var body struct {
		Type        string         `yaml:"type"`
		Required    *bool          `yaml:"required"`
		Description string         `yaml:"description"`
		Placeholder string         `yaml:"placeholder"`
		Default     any            `yaml:"default"`
		Options     []string       `yaml:"options"`
		UIHint      string         `yaml:"ui_hint"`
		Validation  map[string]any `yaml:"validation"`
	}
	if err := n.Decode(&body); err != nil {
		return schema.FieldSpec{}, err
	}
	fs := schema.FieldSpec{
		Type:         schema.FieldType(body.Type),
		Required:     requiredByDefault,
		Description:  body.Description,
		Placeholder:  body.Placeholder,
		DefaultValue: body.Default,
		Options:      body.Options,
		UIHint:       body.UIHint,
	}
	if body.Required != nil {
		fs.Required = *body.Required
	}
	if len(body.Validation) > 0 {
		v := &schema.Validation{}
		if s, ok := body.Validation["pattern"].(string); ok {
			v.Pattern = s
		}
		if s, ok := body.Validation["message"].(string); ok {
			v.Message = s
		}
		if f, ok := toFloat(body.Validation["min"]); ok {
			v.Min = &f
		}
		if f, ok := toFloat(body.Validation["max"]); ok {
			v.Max = &f
		}
		if n, ok := toInt(body.Validation["min_items"]); ok {
			v.MinItems = &n
		}
		if n, ok := toInt(body.Validation["max_items"]); ok {
			v.MaxItems = &n
		}
		fs.Validation = v
	}
	return fs, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// goldmark AST text extraction, grounded on the teacher's extraction helpers.
// ---------------------------------------------------------------------------

func extractText(node ast.Node, source []byte) string {
	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(source))
			if c.SoftLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.CodeSpan:
			for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
				if t, ok := gc.(*ast.Text); ok {
					sb.Write(t.Segment.Value(source))
				}
			}
		default:
			sb.WriteString(extractText(child, source))
		}
	}
	return strings.TrimSpace(sb.String())
}

func extractCodeContent(n *ast.FencedCodeBlock, source []byte) string {
	var sb strings.Builder
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		sb.Write(line.Value(source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lineNumber(source []byte, node ast.Node) int {
	if node.Lines().Len() > 0 {
		line := node.Lines().At(0)
		return countNewlines(source[:line.Start])
	}
	if node.HasChildren() {
		if t, ok := node.FirstChild().(*ast.Text); ok {
			return countNewlines(source[:t.Segment.Start])
		}
	}
	return 0
}

func countNewlines(b []byte) int {
	count := 0
	for _, c := range b {
		if c == '\n' {
			count++
		}
	}
	return count
}
