package lowlevel

import (
	"gclower/internal/types"
)

// ManagedMethodRepository decides per method whether calling it may trigger a
// collection. A method is unmanaged when it, or the class declaring it, is
// marked unmanaged, or when it belongs to a structure type. A method marked
// managed overrides an unmanaged class. Methods that cannot be resolved are
// managed.
type ManagedMethodRepository struct {
	source types.ClassSource
	cache  *memo[string]
}

// NewManagedMethodRepository creates a repository over the given class source
func NewManagedMethodRepository(source types.ClassSource) *ManagedMethodRepository {
	return &ManagedMethodRepository{
		source: source,
		cache:  newMemo[string](),
	}
}

// IsManaged reports whether the method cooperates with the GC
func (r *ManagedMethodRepository) IsManaged(method types.MethodReference) bool {
	return r.cache.get(method.String(), func() bool {
		return r.computeIsManaged(method)
	})
}

func (r *ManagedMethodRepository) computeIsManaged(ref types.MethodReference) bool {
	class, method := r.resolve(ref)
	if method == nil {
		return true
	}
	if method.Traits.Has(types.MethodManaged) {
		return true
	}
	if method.Traits.Has(types.MethodUnmanaged) {
		return false
	}
	if class.Traits.Has(types.TraitUnmanaged) || r.isStructure(class) {
		return false
	}
	return true
}

// resolve finds the declaration of a method on its class or an ancestor
func (r *ManagedMethodRepository) resolve(ref types.MethodReference) (*types.ClassReader, *types.MethodReader) {
	descriptor := ref.Descriptor()
	seen := make(map[string]bool)
	for name := ref.ClassName; name != "" && !seen[name]; {
		seen[name] = true
		class := r.source.Get(name)
		if class == nil {
			return nil, nil
		}
		if method := class.Method(descriptor); method != nil {
			return class, method
		}
		name = class.Parent
	}
	return nil, nil
}

func (r *ManagedMethodRepository) isStructure(class *types.ClassReader) bool {
	seen := make(map[string]bool)
	for class != nil && !seen[class.Name] {
		if class.Name == types.StructureClass || class.Traits.Has(types.TraitStructure) {
			return true
		}
		seen[class.Name] = true
		class = r.source.Get(class.Parent)
	}
	return false
}
