// Package scenario runs scripted fund lifecycles against a processor and
// checks each verdict.
//
// A scenario is a YAML document: the initialization parameters, an optional
// policy, and a list of steps. Each step names an action, the raw facts of the
// transaction (signers, validity lower bound, amounts), and what should
// happen. Documents are validated against an embedded JSON schema before
// they are decoded.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Onyinyechi46/Fund-Governance/pkg/config"
	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

//go:embed scenario.schema.json
var schemaSource string

const schemaURL = "https://fundgov.schemas.local/scenario.schema.json"

var documentSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
		panic(fmt.Errorf("scenario schema load failed: %w", err))
	}
	return c.MustCompile(schemaURL)
}

// Params mirrors contracts.InitParams in the document's snake_case form.
type Params struct {
	TotalAmount       uint64   `yaml:"total_amount"`
	Owner             string   `yaml:"owner"`
	Officials         []string `yaml:"officials"`
	RequiredApprovals int      `yaml:"required_approvals"`
	Deadline          int64    `yaml:"deadline"`
}

// InitParams converts to engine parameters. Identifiers are normalized but
// not validated, so empty or repeated values reach the engine's guards.
func (p Params) InitParams() contracts.InitParams {
	officials := make([]contracts.PartyID, len(p.Officials))
	for i, o := range p.Officials {
		officials[i] = contracts.NormalizePartyID(o)
	}
	return contracts.InitParams{
		TotalAmount:       p.TotalAmount,
		Owner:             contracts.NormalizePartyID(p.Owner),
		Officials:         officials,
		RequiredApprovals: p.RequiredApprovals,
		Deadline:          contracts.Timestamp(p.Deadline),
	}
}

// Expect is what a step should produce. A step without a reason expects
// acceptance.
type Expect struct {
	Reason    string `yaml:"reason,omitempty"`
	Approvals *int   `yaml:"approvals,omitempty"`
	Retired   *bool  `yaml:"retired,omitempty"`
}

// Step is one submission.
type Step struct {
	Name    string               `yaml:"name,omitempty"`
	Action  contracts.ActionKind `yaml:"action"`
	Signers []string             `yaml:"signers,omitempty"`
	// Now is the validity lower bound; absent means unbounded.
	Now   *int64 `yaml:"now,omitempty"`
	Until *int64 `yaml:"until,omitempty"`
	// InputAmount defaults to the fund's total amount.
	InputAmount *uint64 `yaml:"input_amount,omitempty"`
	PaidToOwner uint64  `yaml:"paid_to_owner,omitempty"`
	Expect      Expect  `yaml:"expect"`
}

// Label names the step in reports.
func (s Step) Label(i int) string {
	if s.Name != "" {
		return fmt.Sprintf("#%d %s", i+1, s.Name)
	}
	return fmt.Sprintf("#%d %s", i+1, s.Action)
}

// Document is a whole scenario.
type Document struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description,omitempty"`
	Policy      *config.PolicyProfile `yaml:"policy,omitempty"`
	Params      Params                `yaml:"params"`
	Steps       []Step                `yaml:"steps"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the scenario schema and decodes it.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	generic, err := toJSONValue(raw)
	if err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := documentSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("scenario schema validation failed: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &doc, nil
}

// toJSONValue round-trips a YAML value through encoding/json so the
// validator sees JSON types, with numbers kept exact.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}
