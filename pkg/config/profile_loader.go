package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
)

// PolicyProfile is the on-disk form of a governance policy. Unset switches
// keep their default.
type PolicyProfile struct {
	Name                  string                   `yaml:"name" json:"name"`
	Description           string                   `yaml:"description,omitempty" json:"description,omitempty"`
	RequireSingleSigner   *bool                    `yaml:"require_single_signer,omitempty" json:"require_single_signer,omitempty"`
	ApproveWithinDeadline *bool                    `yaml:"approve_within_deadline,omitempty" json:"approve_within_deadline,omitempty"`
	Overlays              []governance.OverlayRule `yaml:"overlays,omitempty" json:"overlays,omitempty"`
}

// LoadPolicyProfile reads a policy profile YAML file.
func LoadPolicyProfile(path string) (*PolicyProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load policy profile: %w", err)
	}
	return ParsePolicyProfile(data)
}

// ParsePolicyProfile decodes a profile. Unknown keys are an error.
func ParsePolicyProfile(data []byte) (*PolicyProfile, error) {
	var profile PolicyProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&profile); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy profile: %w", err)
	}
	return &profile, nil
}

// Policy converts the profile to engine options.
func (p *PolicyProfile) Policy() governance.Policy {
	pol := governance.DefaultPolicy()
	if p.RequireSingleSigner != nil {
		pol.RequireSingleSigner = *p.RequireSingleSigner
	}
	if p.ApproveWithinDeadline != nil {
		pol.ApproveWithinDeadline = *p.ApproveWithinDeadline
	}
	pol.Overlays = append([]governance.OverlayRule(nil), p.Overlays...)
	return pol
}
