// Package expr handles `${...}` interpolation: it extracts balanced nested
// expressions from text, compiles markup-embedding scripts into HCL
// expressions, and evaluates templates and expressions against an ordered list
// of scopes.
//
// Evaluation uses hclsyntax for parsing and cty for values. Identifiers are
// resolved against the scopes in order; a reactive store scope performs
// tracked reads for exactly the attribute paths the expression traverses.
package expr
