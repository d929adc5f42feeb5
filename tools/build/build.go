// Command build cross-compiles covgate release binaries and stamps the version
// and telemetry key into internal/environment through -ldflags.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	executableName    = "covgate"
	environmentSymbol = "github.com/meza/coverage-gate/internal/environment"
)

// buildToken maps an environment variable to the package variable it overrides.
type buildToken struct {
	env      string
	symbol   string
	required bool
}

var buildTokens = []buildToken{
	{env: "COVGATE_VERSION", symbol: environmentSymbol + ".appVersion", required: true},
	{env: "POSTHOG_API_KEY", symbol: environmentSymbol + ".posthogAPIKeyDefault"},
}

var buildTargets = []buildTarget{
	{goos: "darwin", goarch: "amd64"},
	{goos: "darwin", goarch: "arm64"},
	{goos: "linux", goarch: "amd64"},
	{goos: "linux", goarch: "arm64"},
	{goos: "windows", goarch: "amd64"},
	{goos: "windows", goarch: "arm64"},
}

type buildTarget struct {
	goos   string
	goarch string
}

func (target buildTarget) binaryName() string {
	if target.goos == "windows" {
		return executableName + ".exe"
	}
	return executableName
}

type commandRunner interface {
	Run(*exec.Cmd) error
}

type execRunner struct{}

func (execRunner) Run(command *exec.Cmd) error {
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	return command.Run()
}

type buildTool struct {
	repoRoot      string
	baseEnv       []string
	goBinary      string
	commandRunner commandRunner
	readEnvFile   func(string) (map[string]string, error)
	logger        *log.Logger
}

var (
	getWorkingDirectory = os.Getwd
	newBuildToolFunc    = newBuildTool
	exit                = os.Exit
)

func newBuildTool() (*buildTool, error) {
	workingDirectory, err := getWorkingDirectory()
	if err != nil {
		return nil, errors.Wrap(err, "error: failed to determine working directory")
	}

	repoRoot, err := findRepoRoot(workingDirectory)
	if err != nil {
		return nil, err
	}

	return &buildTool{
		repoRoot:      repoRoot,
		baseEnv:       os.Environ(),
		goBinary:      "go",
		commandRunner: execRunner{},
		readEnvFile:   readEnvFile,
		logger:        log.New(os.Stdout, "build: ", 0),
	}, nil
}

func main() {
	exit(runMain())
}

func runMain() int {
	tool, err := newBuildToolFunc()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tool.run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func (tool *buildTool) run() error {
	envFilePath := filepath.Join(tool.repoRoot, ".env")
	tool.logger.Printf("loading %s", envFilePath)
	fileValues, err := tool.readEnvFile(envFilePath)
	if err != nil {
		return errors.Wrap(err, "error: failed to read .env")
	}

	envMap := mergeTokens(envSliceToMap(tool.baseEnv), fileValues)
	if missing := missingTokens(envMap); len(missing) > 0 {
		return errors.Errorf("error: missing build token(s): %s\nhint: export them or add them to ./.env before running the build", strings.Join(missing, " "))
	}

	ldflags := ldflagsFor(envMap)
	for _, target := range buildTargets {
		tool.logger.Printf("building %s/%s", target.goos, target.goarch)
		if err := tool.buildTarget(target, envMap, ldflags); err != nil {
			return err
		}
	}
	tool.logger.Printf("build complete")
	return nil
}

func (tool *buildTool) buildTarget(target buildTarget, envMap map[string]string, ldflags string) error {
	outputDir := filepath.Join(tool.repoRoot, "build", target.goos, target.goarch)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrap(err, "error: create build directory")
	}
	outputPath := filepath.Join(outputDir, target.binaryName())

	environment := make(map[string]string, len(envMap)+3)
	for key, value := range envMap {
		environment[key] = value
	}
	environment["GOOS"] = target.goos
	environment["GOARCH"] = target.goarch
	environment["CGO_ENABLED"] = "0"

	command := exec.Command(tool.goBinary, "build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, ".")
	command.Dir = tool.repoRoot
	command.Env = envMapToSlice(environment)

	tool.logger.Printf("output %s", outputPath)
	if err := tool.commandRunner.Run(command); err != nil {
		return errors.Wrapf(err, "build %s/%s", target.goos, target.goarch)
	}
	return nil
}

// readEnvFile treats a missing .env as empty.
func readEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return godotenv.Parse(bytes.NewReader(data))
}

func findRepoRoot(startDir string) (string, error) {
	current := startDir
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", errors.New("error: failed to locate repo root (missing go.mod); run from repo root")
		}
		current = parent
	}
}

// mergeTokens fills build tokens from the .env file. The process
// environment wins.
func mergeTokens(envMap map[string]string, fileValues map[string]string) map[string]string {
	for _, token := range buildTokens {
		if _, exists := envMap[token.env]; exists {
			continue
		}
		if value, ok := fileValues[token.env]; ok {
			envMap[token.env] = value
		}
	}
	return envMap
}

func envSliceToMap(entries []string) map[string]string {
	envMap := make(map[string]string, len(entries))
	for _, entry := range entries {
		if key, value, ok := strings.Cut(entry, "="); ok {
			envMap[key] = value
		}
	}
	return envMap
}

func envMapToSlice(envMap map[string]string) []string {
	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, key+"="+envMap[key])
	}
	return entries
}

func missingTokens(envMap map[string]string) []string {
	var missing []string
	for _, token := range buildTokens {
		if token.required && envMap[token.env] == "" {
			missing = append(missing, token.env)
		}
	}
	return missing
}

// ldflagsFor stamps every token that has a value. Unset optional tokens keep
// their REPL_ placeholder, which disables the matching feature at runtime.
func ldflagsFor(envMap map[string]string) string {
	flags := []string{"-s", "-w"}
	for _, token := range buildTokens {
		if value := envMap[token.env]; value != "" {
			flags = append(flags, fmt.Sprintf("-X %s=%s", token.symbol, value))
		}
	}
	return strings.Join(flags, " ")
}
