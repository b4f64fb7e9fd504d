package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	"github.com/ochairo/decant/internal/external-adapters/yaml"
)

// ErrOutputExists is returned when the portable directory already exists
var ErrOutputExists = errors.New("portable directory already exists")

// Directories created inside every portable application
var portableLayout = []string{
	"App",
	filepath.Join("Data", "AppData"),
	filepath.Join("Data", "LocalAppData"),
	filepath.Join("Data", "Profile"),
	filepath.Join("Data", "Registry"),
	filepath.Join("Data", "Temp"),
	filepath.Join("Data", "Settings"),
	"Documentation",
	"Plugins",
}

// Visual C++ runtime libraries copied next to the application when present
var runtimeLibraries = []string{
	"msvcp140.dll", "vcruntime140.dll", "vcruntime140_1.dll", "concrt140.dll", "vccorlib140.dll",
	"msvcp140_1.dll", "msvcp140_2.dll",
	"msvcp120.dll", "msvcr120.dll", "vccorlib120.dll",
	"msvcp110.dll", "msvcr110.dll", "vccorlib110.dll",
	"msvcp100.dll", "msvcr100.dll",
	"msvcp90.dll", "msvcr90.dll",
	"mfc140.dll", "mfc140u.dll", "mfcm140.dll", "mfcm140u.dll",
}

var launcherTemplate = template.Must(template.New("launcher").Parse(`@echo off
setlocal
title {{.Name}} - Portable

set "PORTABLE_DIR=%~dp0"
set "APP_DIR=%PORTABLE_DIR%App"
set "DATA_DIR=%PORTABLE_DIR%Data"

set "APPDATA=%DATA_DIR%\AppData"
set "LOCALAPPDATA=%DATA_DIR%\LocalAppData"
set "USERPROFILE=%DATA_DIR%\Profile"
set "HOME=%DATA_DIR%\Profile"
set "TEMP=%DATA_DIR%\Temp"
set "TMP=%DATA_DIR%\Temp"
set "PORTABLE=1"

if exist "%APP_DIR%\Dependencies" set "PATH=%APP_DIR%\Dependencies;%PATH%"
set "PATH=%APP_DIR%;%PORTABLE_DIR%Plugins;%PATH%"
{{if .MainExecutable}}
start "" "%APP_DIR%\{{.MainExecutable}}" %*
{{else}}
echo No main executable was detected. Contents of %APP_DIR%:
dir /b "%APP_DIR%"
pause
{{end}}endlocal
`))

var infoTemplate = template.Must(template.New("info").Parse(`{{.Name}} (portable)
Created:          {{.CreatedAt.Format "2006-01-02 15:04:05 MST"}}
Type:             {{.Kind}}
Source:           {{.SourceFile}}
{{if .SourceSHA256}}SHA-256:          {{.SourceSHA256}}
{{end}}{{if .Strategy}}Extracted with:   {{.Strategy}}
{{end}}Main executable:  {{if .MainExecutable}}App\{{.MainExecutable}}{{else}}(not detected){{end}}
Dependencies:     {{len .Dependencies}}

Layout:
  App\            application files
  Data\           redirected user data (AppData, LocalAppData, Profile, Temp)
  Documentation\  notes
  Plugins\        add-ons placed on PATH by the launcher
{{if .MainExecutable}}
Start the application with RUN.bat.
{{end}}`))

// TreeAssembler lays out portable application directories
type TreeAssembler struct {
	logger    interfaces.Logger
	finder    *ExecutableFinder
	manifests *yaml.ManifestRepository
	systemDir string
	now       func() time.Time
}

// NewTreeAssembler creates a new tree assembler
func NewTreeAssembler(logger interfaces.Logger) *TreeAssembler {
	windir := os.Getenv("WINDIR")
	if windir == "" {
		windir = `C:\Windows`
	}
	return &TreeAssembler{
		logger:    interfaces.OrNoOp(logger),
		finder:    NewExecutableFinder(),
		manifests: yaml.NewManifestRepository(),
		systemDir: filepath.Join(windir, "System32"),
		now:       time.Now,
	}
}

// Assemble builds <OutputDir>/<Name>_Portable from either an extracted tree
// or a single standalone executable
func (a *TreeAssembler) Assemble(ctx context.Context, req entities.AssemblyRequest, progress interfaces.ProgressReporter) (*entities.PortableApp, error) {
	if progress == nil {
		progress = interfaces.NoOpProgress{}
	}
	if req.Name == "" {
		req.Name = DeriveAppName(req.SourceFile)
	}

	root := filepath.Join(req.OutputDir, req.Name+"_Portable")
	app := &entities.PortableApp{
		Name:         req.Name,
		Kind:         entities.PortableStandalone,
		CreatedAt:    a.now(),
		Root:         root,
		SourceFile:   filepath.Base(req.SourceFile),
		SourceSHA256: req.SourceSHA256,
	}
	if req.ExtractedDir != "" {
		app.Kind = entities.PortableExtracted
		app.Strategy = req.Strategy
	}

	// Step 1: directory structure
	progress.Report("Creating directory structure", 0.1)
	if err := a.prepareRoot(root, req.Overwrite); err != nil {
		return nil, err
	}
	for _, dir := range portableLayout {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	appDir := filepath.Join(root, "App")

	// Step 2: application files
	progress.Report("Copying application files", 0.3)
	if req.ExtractedDir != "" {
		if err := CopyTree(ctx, req.ExtractedDir, appDir, a.logger); err != nil {
			return nil, fmt.Errorf("failed to copy extracted files: %w", err)
		}
	} else {
		if err := copyFile(req.SourceFile, filepath.Join(appDir, filepath.Base(req.SourceFile))); err != nil {
			return nil, fmt.Errorf("failed to copy executable: %w", err)
		}
	}

	// Step 3: runtime libraries
	if req.Advanced.IncludeDependencies {
		progress.Report("Including system dependencies", 0.5)
		app.Dependencies = a.copyRuntimeLibraries(filepath.Join(appDir, "Dependencies"))
	}

	// Step 4: main executable and launcher
	mainExe, err := a.finder.FindMain(appDir, req.Name)
	if err != nil {
		a.logger.Warn("main executable detection failed", interfaces.F("error", err))
	}
	app.MainExecutable = mainExe
	if req.Advanced.CreateLauncher {
		progress.Report("Creating portable launcher", 0.7)
		if err := renderToFile(launcherTemplate, filepath.Join(root, "RUN.bat"), launcherData(app)); err != nil {
			return nil, fmt.Errorf("failed to write launcher: %w", err)
		}
	}

	// Step 5: manifest and notes
	progress.Report("Creating configuration files", 0.9)
	if err := a.manifests.Save(app); err != nil {
		return nil, err
	}
	if err := renderToFile(infoTemplate, filepath.Join(root, "Documentation", "INFO.txt"), launcherData(app)); err != nil {
		return nil, fmt.Errorf("failed to write INFO.txt: %w", err)
	}

	progress.Report("Portable app created", 1.0)
	a.logger.Info("portable app assembled",
		interfaces.F("root", root),
		interfaces.F("kind", app.Kind),
		interfaces.F("main_executable", app.MainExecutable),
	)
	return app, nil
}

func (a *TreeAssembler) prepareRoot(root string, overwrite bool) error {
	if _, err := os.Stat(root); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrOutputExists, root)
		}
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("failed to remove existing %s: %w", root, err)
		}
	}
	return os.MkdirAll(root, 0o750)
}

// CopyTree copies the contents of src into dst, skipping symlinks
func CopyTree(ctx context.Context, src, dst string, logger interfaces.Logger) error {
	logger = interfaces.OrNoOp(logger)
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		// Skip the root directory itself
		if relPath == "." {
			return nil
		}
		target := filepath.Join(dst, relPath)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			logger.Warn("skipping symlink", interfaces.F("path", path))
			return nil
		case d.IsDir():
			return os.MkdirAll(target, 0o750)
		default:
			return copyFile(path, target)
		}
	})
}

// copyRuntimeLibraries copies whichever runtime DLLs exist in the system directory
func (a *TreeAssembler) copyRuntimeLibraries(depsDir string) []string {
	if err := os.MkdirAll(depsDir, 0o750); err != nil {
		a.logger.Warn("cannot create dependencies directory", interfaces.F("error", err))
		return nil
	}

	var copied []string
	for _, dll := range runtimeLibraries {
		src := filepath.Join(a.systemDir, dll)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(depsDir, dll)); err != nil {
			a.logger.Warn("failed to copy runtime library", interfaces.F("dll", dll), interfaces.F("error", err))
			continue
		}
		copied = append(copied, dll)
	}

	a.logger.Debug("runtime libraries copied", interfaces.F("count", len(copied)), interfaces.F("from", a.systemDir))
	return copied
}

// copyFile copies a regular file, keeping its permission bits
func copyFile(src, dst string) error {
	//nolint:gosec // G304: src comes from the input file or a session-owned tree
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	//nolint:gosec // G304: dst is inside the portable directory being built
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return out.Close()
}

// launcherData adapts paths for batch files, which need backslashes
func launcherData(app *entities.PortableApp) *entities.PortableApp {
	view := *app
	view.MainExecutable = strings.ReplaceAll(app.MainExecutable, "/", `\`)
	return &view
}

func renderToFile(tmpl *template.Template, path string, data any) error {
	//nolint:gosec // G304: path is inside the portable directory being built
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// DeriveAppName turns an installer file name into an application name by
// dropping installer words and separators
func DeriveAppName(sourceFile string) string {
	base := filepath.Base(sourceFile)
	name := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	for _, term := range []string{"installer", "install", "setup"} {
		name = strings.ReplaceAll(name, term, "")
	}
	name = strings.Trim(name, " _-.")
	if name == "" {
		return "App"
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + name[size:]
}
