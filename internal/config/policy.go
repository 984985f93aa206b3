package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy controls who may review campaigns and where they may be deployed.
type Policy struct {
	ApproverRoles []string `yaml:"approverRoles"`
	Platforms     []string `yaml:"platforms"`
}

func DefaultPolicy() Policy {
	return Policy{
		ApproverRoles: []string{"compliance", "manager"},
		Platforms:     []string{"linkedin", "youtube", "instagram", "tiktok"},
	}
}

// LoadPolicy reads a YAML policy file. Lists left empty keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read workflow config: %w", err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse workflow config: %w", err)
	}
	def := DefaultPolicy()
	if len(p.ApproverRoles) == 0 {
		p.ApproverRoles = def.ApproverRoles
	}
	if len(p.Platforms) == 0 {
		p.Platforms = def.Platforms
	}
	p.ApproverRoles = normalize(p.ApproverRoles)
	p.Platforms = normalize(p.Platforms)
	return p, nil
}

func (p Policy) IsApprover(role string) bool {
	return contains(p.ApproverRoles, strings.ToLower(strings.TrimSpace(role)))
}

func (p Policy) IsPlatform(platform string) bool {
	return contains(p.Platforms, platform)
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
