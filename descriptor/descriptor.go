// Package descriptor adapts tagged YAML job descriptors into the inputs
// the coordinator needs: a validated structure, an eligibility decision,
// and a stable content hash. The parsing format lives here, outside the
// scheduling core; the coordinator only sees the Descriptor value and an
// injected Eligibility predicate.
package descriptor

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/peerflow-dev/peerflow/internal/canonical"
)

// Descriptor is a submitted workflow definition.
type Descriptor struct {
	Name     string         `yaml:"name" json:"name"`
	Tags     []string       `yaml:"tags" json:"tags"`
	Priority int64          `yaml:"priority" json:"priority"`
	Spec     map[string]any `yaml:"spec" json:"spec"`
}

// descriptorSchema constrains the descriptor shape before hashing.
// Kept in CUE so structural rules stay declarative.
const descriptorSchema = `
{
	name: string & != ""
	tags: [...string]
	priority?: int & >= 0
	spec: {...}
}
`

// Parse decodes a YAML descriptor and validates it against the schema.
func Parse(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse descriptor: %w", err)
	}
	if err := Validate(d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate checks the descriptor against the CUE schema.
func Validate(d Descriptor) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(descriptorSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("descriptor schema: %w", err)
	}

	value := ctx.Encode(toCUEValue(d))
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}
	return nil
}

// toCUEValue maps the descriptor to plain values for cue encoding.
// Nil maps and slices become empty so the schema sees concrete fields.
func toCUEValue(d Descriptor) map[string]any {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	spec := d.Spec
	if spec == nil {
		spec = map[string]any{}
	}
	return map[string]any{
		"name":     d.Name,
		"tags":     tags,
		"priority": d.Priority,
		"spec":     spec,
	}
}

// Hash computes the canonical content hash of the descriptor. Identical
// content always hashes identically, which makes resubmission idempotent
// at the task-identifier level.
//
// Priority is excluded: two submissions of the same work at different
// priorities are still the same task.
func Hash(d Descriptor) (string, error) {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	spec := d.Spec
	if spec == nil {
		spec = map[string]any{}
	}
	hash, err := canonical.HashObject(canonical.DomainTask, map[string]any{
		"name": d.Name,
		"tags": tags,
		"spec": spec,
	})
	if err != nil {
		return "", fmt.Errorf("hash descriptor: %w", err)
	}
	return hash, nil
}
