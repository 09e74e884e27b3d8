package httpapi

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultStaticDir is served when Deps.StaticDir is empty.
const DefaultStaticDir = "static"

// newStaticHandler serves files below dir for GET and HEAD. Dotfiles and
// anything under hidden are answered with 404.
func newStaticHandler(dir string, hidden []string) gin.HandlerFunc {
	if dir == "" {
		dir = DefaultStaticDir
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		root = dir
	}
	hiddenAbs := make([]string, 0, len(hidden))
	for _, h := range hidden {
		if h == "" {
			continue
		}
		if abs, err := filepath.Abs(h); err == nil {
			hiddenAbs = append(hiddenAbs, abs)
		}
	}
	files := http.FileServer(http.Dir(root))

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}
		name := path.Clean("/" + c.Request.URL.Path)
		if hasDotSegment(name) {
			c.Status(http.StatusNotFound)
			return
		}
		target := filepath.Join(root, filepath.FromSlash(name))
		for _, h := range hiddenAbs {
			if within(target, h) {
				c.Status(http.StatusNotFound)
				return
			}
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

func hasDotSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
