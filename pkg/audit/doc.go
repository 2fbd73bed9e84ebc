// Package audit checks packaging plans against guardrails written in Rego.
//
// A guardrail is a Rego module whose deny rules fire on individual packaging
// decisions. The engine compiles each guardrail once, then evaluates every
// decision in a plan against every enabled guardrail, producing a report of
// findings graded info, warning, or error. Error findings fail the audit;
// warnings and info findings are advisory.
//
// Three guardrails are built in: no-test-resources flags test-only resources
// that end up included, module-without-representation flags modules that
// would produce nothing loadable, and copyleft-variant-embedded flags
// copyleft-linked extension variants placed in the executable image. Users
// extend or override them with .rego or .json files loaded through the
// Loader, which can also watch those files and hot-reload on change.
//
// Guardrail input documents look like:
//
//	{
//	    "decision": {
//	        "resource": "ssl",
//	        "kind": "extension-module",
//	        "context": {"include": true, "location": "in-memory", ...}
//	    },
//	    "policy": { ... },
//	    "summary": {"resources": 42, "included": 40, ...}
//	}
//
// and a deny rule yields either a message string or an object with message,
// severity, resource, and remediation fields.
package audit
