package audit

import (
	"time"
)

// BuiltinGuardrails returns the guardrails every audit starts with.
func BuiltinGuardrails() []Guardrail {
	return []Guardrail{
		noTestResourcesGuardrail(),
		moduleWithoutRepresentationGuardrail(),
		copyleftVariantEmbeddedGuardrail(),
	}
}

// noTestResourcesGuardrail flags test-only resources that end up in the
// artifact.
func noTestResourcesGuardrail() Guardrail {
	return Guardrail{
		Name:        "no-test-resources",
		Description: "Flags test-only resources included in the packaged artifact",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"hygiene"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package omnipack.guardrails.tests

import rego.v1

# Shipping test-only resources bloats the artifact.
deny contains violation if {
	d := input.decision
	d.test
	d.context.include
	not d.conflict
	violation := {
		"message": sprintf("test-only resource %s is included in the artifact", [d.resource]),
		"severity": "warning",
		"resource": d.resource,
		"remediation": "leave include_test off or exclude the resource in a callback",
	}
}
`,
	}
}

// moduleWithoutRepresentationGuardrail flags included modules that request
// neither bytecode nor source.
func moduleWithoutRepresentationGuardrail() Guardrail {
	return Guardrail{
		Name:        "module-without-representation",
		Description: "Flags included modules with no bytecode level and no source requested",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"correctness"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package omnipack.guardrails.representation

import rego.v1

# An included module with no representation produces nothing loadable.
deny contains violation if {
	d := input.decision
	d.kind in {"module-source", "module-bytecode"}
	d.context.include
	not d.conflict
	not d.context.optimize_level_zero
	not d.context.optimize_level_one
	not d.context.optimize_level_two
	not d.context.include_source
	violation := {
		"message": sprintf("module %s is included but requests no bytecode level and no source", [d.resource]),
		"severity": "error",
		"resource": d.resource,
		"remediation": "enable a bytecode_optimize_level toggle or allow_files for source",
	}
}
`,
	}
}

// copyleftVariantEmbeddedGuardrail flags copyleft-linked extension variants
// embedded in the executable image.
func copyleftVariantEmbeddedGuardrail() Guardrail {
	return Guardrail{
		Name:        "copyleft-variant-embedded",
		Description: "Flags copyleft-linked extension variants placed in the in-memory image",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"licensing"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package omnipack.guardrails.licensing

import rego.v1

# Embedding copyleft-linked code in the executable has license implications
# that shipping it as a separate file may not.
deny contains violation if {
	d := input.decision
	d.kind == "extension-module"
	d.context.include
	not d.conflict
	d.context.location == "in-memory"
	some v in d.variants
	v.name == d.context.variant
	v.copyleft
	violation := {
		"message": sprintf("extension module %s embeds copyleft variant %s in the executable image", [d.resource, v.name]),
		"severity": "warning",
		"resource": d.resource,
		"remediation": "prefer a non-copyleft variant or a filesystem-relative placement",
	}
}
`,
	}
}
