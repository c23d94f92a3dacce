package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Project type values produced by ClassifyProjectType
const (
	TypeFrontend    = "frontend"
	TypeBackend     = "backend"
	TypeFullstack   = "fullstack"
	TypeDesktop     = "desktop"
	TypeMobile      = "mobile"
	TypeLibrary     = "library"
	TypeSystems     = "systems"
	TypeDataScience = "data_science"
	TypeGeneral     = "general"
)

// npmDependencyTags maps a package.json dependency name to a stack tag
var npmDependencyTags = map[string]string{
	"react":            "react",
	"vue":              "vue",
	"@angular/core":    "angular",
	"svelte":           "svelte",
	"next":             "nextjs",
	"nuxt":             "nuxtjs",
	"express":          "express",
	"fastify":          "fastify",
	"@nestjs/core":     "nestjs",
	"koa":              "koa",
	"electron":         "electron",
	"react-native":     "react-native",
	"typescript":       "typescript",
	"tailwindcss":      "tailwind",
	"prisma":           "prisma",
	"@prisma/client":   "prisma",
	"pg":               "postgres",
	"mysql2":           "mysql",
	"mongodb":          "mongodb",
	"mongoose":         "mongodb",
	"redis":            "redis",
	"better-sqlite3":   "sqlite",
	"graphql":          "graphql",
	"@modelcontextprotocol/sdk": "mcp",
}

// pythonDependencyTags maps a Python requirement name to a stack tag
var pythonDependencyTags = map[string]string{
	"django":       "django",
	"flask":        "flask",
	"fastapi":      "fastapi",
	"pandas":       "pandas",
	"numpy":        "numpy",
	"scikit-learn": "scikit-learn",
	"jupyter":      "jupyter",
	"torch":        "pytorch",
	"tensorflow":   "tensorflow",
	"sqlalchemy":   "sqlalchemy",
	"psycopg2":     "postgres",
}

var frontendTags = []string{"react", "vue", "angular", "svelte"}
var backendTags = []string{"express", "fastify", "nestjs", "koa", "django", "flask", "fastapi", "rails", "spring", "gin"}
var fullstackTags = []string{"nextjs", "nuxtjs"}
var mobileTags = []string{"react-native", "flutter"}
var systemsTags = []string{"rust", "go", "c", "cpp"}
var dataScienceTags = []string{"pandas", "numpy", "scikit-learn", "jupyter", "pytorch", "tensorflow"}

// DetectTechStack runs the deterministic static scan over known manifest
// files and returns stack tags in a stable order.
func DetectTechStack(root string) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(tag string) {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	scanPackageJSON(root, add)
	scanCargoToml(root, add)
	scanPyproject(root, add)
	scanRequirements(root, add)
	scanGoMod(root, add)
	scanPubspec(root, add)
	scanJVM(root, add)

	return tags
}

func scanPackageJSON(root string, add func(string)) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return
	}

	var manifest struct {
		Main            string            `json:"main"`
		Bin             json.RawMessage   `json:"bin"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return
	}

	add("nodejs")
	for dep := range manifest.Dependencies {
		add(npmDependencyTags[dep])
	}
	for dep := range manifest.DevDependencies {
		add(npmDependencyTags[dep])
	}

	// A main entry without any app framework marks a publishable library
	if manifest.Main != "" && len(manifest.Bin) == 0 {
		framework := false
		for dep := range manifest.Dependencies {
			if npmDependencyTags[dep] != "" {
				framework = true
				break
			}
		}
		if !framework {
			add("library")
		}
	}
}

func scanCargoToml(root string, add func(string)) {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return
	}

	add("rust")

	var manifest struct {
		Lib          map[string]interface{} `toml:"lib"`
		Dependencies map[string]interface{} `toml:"dependencies"`
	}
	if err := gotoml.Unmarshal(data, &manifest); err != nil {
		return
	}
	if _, ok := manifest.Dependencies["actix-web"]; ok {
		add("actix")
	}
	if _, ok := manifest.Dependencies["axum"]; ok {
		add("axum")
	}
	if _, ok := manifest.Dependencies["tauri"]; ok {
		add("tauri")
	}
	if len(manifest.Lib) > 0 {
		add("library")
	}
}

func scanPyproject(root string, add func(string)) {
	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return
	}

	add("python")

	var manifest struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
	}
	if err := gotoml.Unmarshal(data, &manifest); err != nil {
		return
	}
	for _, dep := range manifest.Project.Dependencies {
		add(pythonDependencyTags[normalizeRequirement(dep)])
	}
}

func scanRequirements(root string, add func(string)) {
	data, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	if err != nil {
		return
	}

	add("python")
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		add(pythonDependencyTags[normalizeRequirement(line)])
	}
}

// normalizeRequirement strips version constraints and extras from a Python
// requirement line, leaving the bare package name.
func normalizeRequirement(req string) string {
	name := strings.ToLower(strings.TrimSpace(req))
	for _, sep := range []string{"==", ">=", "<=", "~=", ">", "<", "[", ";", " "} {
		if idx := strings.Index(name, sep); idx >= 0 {
			name = name[:idx]
		}
	}
	return name
}

func scanGoMod(root string, add func(string)) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return
	}

	add("go")
	content := string(data)
	if strings.Contains(content, "github.com/gin-gonic/gin") {
		add("gin")
	}
	if strings.Contains(content, "github.com/gofiber/fiber") {
		add("fiber")
	}
	if strings.Contains(content, "google.golang.org/grpc") {
		add("grpc")
	}
}

func scanPubspec(root string, add func(string)) {
	data, err := os.ReadFile(filepath.Join(root, "pubspec.yaml"))
	if err != nil {
		return
	}

	add("dart")

	var manifest struct {
		Dependencies map[string]interface{} `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return
	}
	if _, ok := manifest.Dependencies["flutter"]; ok {
		add("flutter")
	}
}

func scanJVM(root string, add func(string)) {
	for _, manifest := range []string{"pom.xml", "build.gradle", "build.gradle.kts"} {
		data, err := os.ReadFile(filepath.Join(root, manifest))
		if err != nil {
			continue
		}
		add("java")
		if strings.Contains(string(data), "spring") {
			add("spring")
		}
		return
	}
}

// ClassifyProjectType maps stack tags to a categorical project type. The
// precedence order is a contract: frontend, backend, fullstack, desktop,
// mobile, library, systems, data science; first match wins, default general.
func ClassifyProjectType(tags []string) string {
	has := make(map[string]bool, len(tags))
	for _, tag := range tags {
		has[tag] = true
	}
	any := func(candidates []string) bool {
		for _, c := range candidates {
			if has[c] {
				return true
			}
		}
		return false
	}

	frontend := any(frontendTags)
	backend := any(backendTags)
	fullstack := any(fullstackTags)

	switch {
	case frontend && !backend:
		return TypeFrontend
	case backend && !frontend:
		return TypeBackend
	case fullstack || (frontend && backend):
		return TypeFullstack
	case has["electron"] || has["tauri"]:
		return TypeDesktop
	case any(mobileTags):
		return TypeMobile
	case has["library"]:
		return TypeLibrary
	case any(systemsTags):
		return TypeSystems
	case any(dataScienceTags):
		return TypeDataScience
	default:
		return TypeGeneral
	}
}
