package types

// MaxNamespaceLen bounds namespace names so derived table and file names
// stay portable.
const MaxNamespaceLen = 64

// ValidNamespace reports whether name can be used as a namespace: it starts
// with a lowercase ASCII letter and continues with lowercase letters, digits,
// '_' or '-'.
func ValidNamespace(name string) bool {
	if name == "" || len(name) > MaxNamespaceLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case i > 0 && c >= '0' && c <= '9':
		case i > 0 && (c == '_' || c == '-'):
		default:
			return false
		}
	}
	return true
}

// CheckKey validates a (namespace, id) pair and returns the matching
// sentinel error.
func CheckKey(namespace, id string) error {
	if !ValidNamespace(namespace) {
		return ErrInvalidNamespace
	}
	if id == "" {
		return ErrInvalidID
	}
	return nil
}
