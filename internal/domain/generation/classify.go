package generation

import (
	"path"
	"strings"
	"unicode"
)

// ClassifyPath infers the file type of an artifact from its path alone.
func ClassifyPath(p string) FileType {
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	base := path.Base(clean)
	lower := strings.ToLower(base)
	dirs := strings.Split(path.Dir(clean), "/")

	switch {
	case strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec.") || hasDir(dirs, "__tests__"):
		return FileTest
	case strings.HasSuffix(lower, ".d.ts") || hasDir(dirs, "types") || strings.HasPrefix(lower, "types."):
		return FileTypeDecl
	}

	stem := strings.TrimSuffix(base, path.Ext(base))
	if isHookName(stem) || hasDir(dirs, "hooks") {
		return FileHook
	}

	ext := path.Ext(lower)
	if hasDir(dirs, "components") || ((ext == ".tsx" || ext == ".jsx") && startsUpper(stem)) {
		return FileComponent
	}
	return FileUtil
}

// ExternalPackage returns the package name for a bare import specifier.
// Relative, absolute and alias ("@/", "~/") specifiers are not external.
func ExternalPackage(spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") ||
		strings.HasPrefix(spec, "@/") || strings.HasPrefix(spec, "~/") {
		return "", false
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}

// IsTestFor reports whether testPath is the conventional test file for srcPath
// (foo.ts -> foo.test.ts / foo.spec.ts). The test must sit next to the source
// or in a __tests__ directory beside the source or beside its directory.
func IsTestFor(testPath, srcPath string) bool {
	if !besideSource(path.Dir(testPath), path.Dir(srcPath)) {
		return false
	}
	srcBase := path.Base(srcPath)
	srcStem := strings.TrimSuffix(srcBase, path.Ext(srcBase))
	testBase := path.Base(testPath)
	for _, marker := range []string{".test.", ".spec."} {
		if strings.HasPrefix(testBase, srcStem+marker) {
			return true
		}
	}
	return false
}

func besideSource(testDir, srcDir string) bool {
	if testDir == srcDir {
		return true
	}
	if path.Base(testDir) != "__tests__" {
		return false
	}
	parent := path.Dir(testDir)
	return parent == srcDir || parent == path.Dir(srcDir)
}

func hasDir(dirs []string, name string) bool {
	for _, d := range dirs {
		if d == name {
			return true
		}
	}
	return false
}

func isHookName(stem string) bool {
	if len(stem) < 4 || !strings.HasPrefix(stem, "use") {
		return false
	}
	return unicode.IsUpper(rune(stem[3]))
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
