package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"example.com/aioforge/internal/aio"
	"example.com/aioforge/internal/batch"
	"example.com/aioforge/internal/common"
	"example.com/aioforge/internal/job"
	"example.com/aioforge/internal/manifest"
	"example.com/aioforge/internal/report"
	"example.com/aioforge/internal/rules"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	if _, err := common.RequireValidLicense(); err != nil {
		fmt.Fprintf(os.Stderr, "license error: %v\n", err)
		fmt.Fprintf(os.Stderr, "machine hash: %s\n", machineHashForError())
		os.Exit(2)
	}
	cmd := os.Args[1]
	switch cmd {
	case "merge":
		mergeCmd(os.Args[2:])
	case "inspect":
		inspectCmd(os.Args[2:])
	case "verify":
		verifyCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	case "profile":
		profileCmd(os.Args[2:])
	case "rulepack":
		rulepackCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`aioctl %s (built %s) <command> [options]

Commands:
  merge     --base <file> --out <image.aio> [target[@offset] ...] | --job <job.yaml> [--profile <profile.yaml>] [--report <layout.json>] [--pdf <layout.pdf>] [--manifest <manifest.json>] [--qr <digest.png>] [--log <merges.jsonl>] [--metrics] [--progress]
  inspect   --in <image.aio> [--json <layout.json>]
  verify    --in <image.aio> [--profile <profile.yaml>] [--rules <rulepack.json> | --rulepack-id <id> [--rulepack-version <version>]] [--out <diagnostics.ndjson>] [--acceptance <acceptance.json>] [--pdf <acceptance.pdf>]
  diff      --a <image.aio> --b <image.aio>
  batch     --in <dir> --base <file> [--include <glob>]... [--exclude <glob>]... [--case-insensitive] [--out-dir <dir>] [--profile <profile.yaml>] [--metrics]
  report    --layout <layout.json> | --acceptance <acceptance.json> --pdf <out.pdf>
  manifest  --inputs <comma-separated> --out <manifest.json> | --verify <manifest.json>
  profile   --in <profile.yaml>
  rulepack  <install|list|remove|set-default> [...]
`, version, buildDate)
}

func machineHashForError() string {
	hash, err := common.MachineFingerprint()
	if err != nil {
		return fmt.Sprintf("unavailable (%v)", err)
	}
	return hash
}

// mergeSpec is one fully resolved merge: where the bytes come from,
// where the image goes, and which side artifacts to produce. Both the
// merge and batch commands feed runMerge through it.
type mergeSpec struct {
	BasePath string
	Output   string
	Profile  string
	Targets  []aio.Target
	Inputs   []string
	Report   string
	Pdf      string
	Manifest string
	Qr       string
	Log      string
}

func mergeCmd(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	base := fs.String("base", "", "base firmware file")
	out := fs.String("out", "", "output image path")
	jobPath := fs.String("job", "", "merge job YAML")
	profilePath := fs.String("profile", "", "device profile YAML")
	reportPath := fs.String("report", "", "layout report JSON output")
	pdfPath := fs.String("pdf", "", "layout report PDF output")
	manifestPath := fs.String("manifest", "", "provenance manifest JSON output")
	qrPath := fs.String("qr", "", "output digest QR PNG")
	logPath := fs.String("log", "", "merge log (jsonl, appended)")
	metricsFlag := fs.Bool("metrics", false, "print merge throughput metrics")
	progressFlag := fs.Bool("progress", false, "display merge progress updates")
	fs.Parse(args)

	var spec mergeSpec
	if *jobPath != "" {
		if *base != "" || *out != "" || fs.NArg() > 0 {
			fmt.Println("--job cannot be combined with --base, --out or target arguments")
			os.Exit(1)
		}
		j, err := job.Load(*jobPath)
		if err != nil {
			fmt.Println("load job:", err)
			os.Exit(1)
		}
		targets, err := j.LoadTargets()
		if err != nil {
			fmt.Println("load targets:", err)
			os.Exit(1)
		}
		spec = mergeSpec{
			BasePath: j.Base,
			Output:   j.Output,
			Profile:  j.Profile,
			Targets:  targets,
			Inputs:   jobInputs(j),
			Report:   j.Report,
			Pdf:      j.Pdf,
			Manifest: j.Manifest,
			Log:      j.Log,
		}
	} else {
		if *base == "" || *out == "" {
			fmt.Println("required: --base, --out (or --job)")
			os.Exit(1)
		}
		spec = mergeSpec{BasePath: *base, Output: *out, Inputs: []string{*base}}
		for _, arg := range fs.Args() {
			path, off, err := parseTargetArg(arg)
			if err != nil {
				fmt.Println("target:", err)
				os.Exit(1)
			}
			data, err := common.ReadImageFile(path)
			if err != nil {
				fmt.Println("read target:", err)
				os.Exit(1)
			}
			spec.Targets = append(spec.Targets, aio.Target{Name: filepath.Base(path), Data: data, Offset: off})
			spec.Inputs = append(spec.Inputs, path)
		}
	}
	if *profilePath != "" {
		spec.Profile = *profilePath
	}
	if *reportPath != "" {
		spec.Report = *reportPath
	}
	if *pdfPath != "" {
		spec.Pdf = *pdfPath
	}
	if *manifestPath != "" {
		spec.Manifest = *manifestPath
	}
	if *qrPath != "" {
		spec.Qr = *qrPath
	}
	if *logPath != "" {
		spec.Log = *logPath
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	err := runMerge(spec, metrics)
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		fmt.Println("merge:", err)
		os.Exit(1)
	}
	printMetrics(metrics, *metricsFlag)
}

// parseTargetArg splits a positional merge argument of the form
// path[@offset]. Offsets accept decimal or 0x-prefixed hex.
func parseTargetArg(arg string) (string, *uint32, error) {
	if i := strings.LastIndex(arg, "@"); i > 0 {
		off, err := job.ParseOffset(arg[i+1:])
		if err != nil {
			return "", nil, fmt.Errorf("%q: %w", arg, err)
		}
		if off == nil {
			return "", nil, fmt.Errorf("%q: empty offset", arg)
		}
		return arg[:i], off, nil
	}
	return arg, nil, nil
}

func jobInputs(j job.Job) []string {
	inputs := []string{j.Base}
	for _, t := range j.Targets {
		inputs = append(inputs, t.Path)
	}
	return inputs
}

func runMerge(spec mergeSpec, metrics *common.Metrics) error {
	base, err := common.ReadImageFile(spec.BasePath)
	if err != nil {
		return fmt.Errorf("read base: %w", err)
	}
	prof := aio.DefaultProfile()
	if spec.Profile != "" {
		prof, err = aio.LoadProfile(spec.Profile)
		if err != nil {
			return err
		}
	}
	if metrics != nil {
		var total int64
		for _, p := range spec.Inputs {
			if info, err := os.Stat(p); err == nil {
				total += info.Size()
			}
		}
		metrics.SetTotalBytes(total)
		metrics.Start()
	}

	started := time.Now()
	res, err := aio.Merge(base, spec.Targets, aio.MergeOptions{Profile: prof, BaseName: filepath.Base(spec.BasePath)})
	if err != nil {
		if metrics != nil {
			metrics.IncFailure()
			metrics.Stop()
		}
		return err
	}
	if dir := filepath.Dir(spec.Output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(spec.Output, res.Image, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if metrics != nil {
		metrics.AddImage(int64(len(res.Image)))
		metrics.Stop()
	}

	layout := report.LayoutFromMerge(res, filepath.Base(spec.Output))
	fmt.Printf("Merged %d payloads into %s (header 0x%X, total 0x%X)\n",
		len(res.Plan.Entries), spec.Output, res.HeaderSize, res.TotalSize)

	if spec.Report != "" {
		if err := report.SaveLayoutJSON(layout, spec.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Println("Wrote", spec.Report)
	}
	if spec.Pdf != "" {
		if err := report.SaveLayoutPDF(layout, spec.Pdf); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Println("Wrote", spec.Pdf)
	}
	if spec.Qr != "" {
		png, err := report.ImageHashToQR(layout.Sha256, 256)
		if err != nil {
			return fmt.Errorf("digest qr: %w", err)
		}
		if err := os.WriteFile(spec.Qr, png, 0o644); err != nil {
			return fmt.Errorf("write qr: %w", err)
		}
		fmt.Println("Wrote", spec.Qr)
	}
	if spec.Manifest != "" {
		paths := append(append([]string{}, spec.Inputs...), spec.Output)
		m, err := manifest.Build(paths)
		if err != nil {
			return fmt.Errorf("manifest build: %w", err)
		}
		if err := manifest.Save(m, spec.Manifest); err != nil {
			return fmt.Errorf("manifest save: %w", err)
		}
		fmt.Println("Wrote", spec.Manifest)
	}
	if spec.Log != "" {
		entry := common.MergeLogEntry{
			Output:       spec.Output,
			OutputSha256: layout.Sha256,
			Profile:      prof.Name,
			HeaderSize:   res.HeaderSize,
			TotalSize:    res.TotalSize,
			EntryCount:   len(res.Plan.Entries),
			DurationMs:   time.Since(started).Milliseconds(),
		}
		for _, e := range res.Plan.Entries {
			entry.Inputs = append(entry.Inputs, common.MergeInput{
				Name:   e.Name,
				Sha256: common.Sha256OfBytes(e.Data),
				Size:   int64(e.Size),
				Offset: fmt.Sprintf("0x%X", e.Offset),
			})
		}
		if err := common.NewMergeLog(spec.Log).Append(entry); err != nil {
			return fmt.Errorf("merge log: %w", err)
		}
	}
	return nil
}

func printMetrics(metrics *common.Metrics, enabled bool) {
	if metrics == nil || !enabled {
		return
	}
	snap := metrics.Snapshot()
	mbPerSec := snap.ThroughputBytesPerSecond() / 1_000_000
	fmt.Printf("Metrics: duration=%s images=%d processed=%s throughput=%.2f MB/s\n",
		snap.Duration.Round(10*time.Millisecond),
		snap.Images,
		common.FormatBytes(snap.Bytes),
		mbPerSec,
	)
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", "", "packaged image")
	jsonOut := fs.String("json", "", "write the layout report as JSON")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Println("read input:", err)
		os.Exit(1)
	}
	insp, err := aio.Inspect(data)
	if err != nil {
		fmt.Println("inspect:", err)
		os.Exit(1)
	}
	rep := report.LayoutFromInspection(insp, data, *in)

	s := insp.Summary
	fmt.Printf("version:     0x%04X\n", s.Version)
	fmt.Printf("device type: 0x%02X\n", s.DeviceType)
	fmt.Printf("fw version:  0x%08X\n", s.FwVersion)
	fmt.Printf("update ctrl: 0x%02X\n", s.UpdateCtrl)
	if err := report.RenderLayoutText(os.Stdout, rep); err != nil {
		fmt.Println("render:", err)
		os.Exit(1)
	}

	if *jsonOut != "" {
		if err := report.SaveLayoutJSON(rep, *jsonOut); err != nil {
			fmt.Println("write json:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote", *jsonOut)
	}
}

func verifyCmd(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "", "packaged image")
	profilePath := fs.String("profile", "", "device profile YAML")
	rulesPath := fs.String("rules", "", "rulepack.json")
	rulePackID := fs.String("rulepack-id", "", "installed rule pack identifier")
	rulePackVersion := fs.String("rulepack-version", "", "installed rule pack version")
	outDiag := fs.String("out", "diagnostics.ndjson", "diagnostics output")
	outAcc := fs.String("acceptance", "acceptance_report.json", "acceptance json")
	pdfPath := fs.String("pdf", "", "acceptance report PDF")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	if *rulesPath != "" && *rulePackID != "" {
		fmt.Println("--rules and --rulepack-id cannot be used together")
		os.Exit(1)
	}
	if *rulePackVersion != "" && *rulePackID == "" {
		fmt.Println("--rulepack-version requires --rulepack-id")
		os.Exit(1)
	}

	prof := aio.DefaultProfile()
	if *profilePath != "" {
		var err error
		prof, err = aio.LoadProfile(*profilePath)
		if err != nil {
			fmt.Println("load profile:", err)
			os.Exit(1)
		}
	}

	rp, source, err := rules.ResolveRulePack(rules.RulePackRequest{
		Path:       *rulesPath,
		RulePackId: *rulePackID,
		Version:    *rulePackVersion,
		Profile:    prof.Name,
	})
	if err != nil {
		fmt.Println("resolve rulepack:", err)
		os.Exit(1)
	}
	if source.FromRepository {
		fmt.Printf("Using rule pack %s@%s\n", source.RulePackId, source.Version)
	}
	engine := rules.NewEngine(rp)
	engine.RegisterBuiltins()

	ctx := &rules.Context{InputFile: *in, ProfileName: prof.Name, Profile: prof}
	diags, err := engine.Eval(ctx)
	if err != nil {
		fmt.Println("eval:", err)
		os.Exit(1)
	}

	if err := engine.WriteDiagnosticsNDJSON(*outDiag); err != nil {
		fmt.Println("write diags:", err)
		os.Exit(1)
	}
	rep := engine.MakeAcceptance()
	if err := report.SaveAcceptanceJSON(rep, *outAcc); err != nil {
		fmt.Println("write report:", err)
		os.Exit(1)
	}
	if *pdfPath != "" {
		if err := report.SaveAcceptancePDF(rep, *pdfPath); err != nil {
			fmt.Println("write pdf:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote PDF:", *pdfPath)
	}
	fmt.Printf("PASS=%v, errors=%d, warnings=%d, diagnostics=%d\n",
		rep.Summary.Pass, rep.Summary.Errors, rep.Summary.Warnings, len(diags))
	if !rep.Summary.Pass {
		os.Exit(1)
	}
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	aPath := fs.String("a", "", "first packaged image")
	bPath := fs.String("b", "", "second packaged image")
	fs.Parse(args)

	if *aPath == "" || *bPath == "" {
		fmt.Println("required: --a, --b")
		os.Exit(1)
	}
	repA, err := layoutOf(*aPath)
	if err != nil {
		fmt.Println("inspect a:", err)
		os.Exit(1)
	}
	repB, err := layoutOf(*bPath)
	if err != nil {
		fmt.Println("inspect b:", err)
		os.Exit(1)
	}
	diff, err := report.DiffLayouts(repA, repB, filepath.Base(*aPath), filepath.Base(*bPath))
	if err != nil {
		fmt.Println("diff:", err)
		os.Exit(1)
	}
	if diff == "" {
		fmt.Println("Layouts match")
		return
	}
	fmt.Print(diff)
	os.Exit(1)
}

func layoutOf(path string) (report.LayoutReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.LayoutReport{}, err
	}
	insp, err := aio.Inspect(data)
	if err != nil {
		return report.LayoutReport{}, err
	}
	return report.LayoutFromInspection(insp, data, path), nil
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", "", "directory scanned for target payloads")
	basePath := fs.String("base", "", "base firmware file")
	outDir := fs.String("out-dir", "out", "results directory")
	profilePath := fs.String("profile", "", "device profile YAML")
	caseInsensitive := fs.Bool("case-insensitive", false, "match patterns case-insensitively")
	metricsFlag := fs.Bool("metrics", false, "print merge throughput metrics")
	var include, exclude multiFlag
	fs.Var(&include, "include", "glob pattern to include (repeatable)")
	fs.Var(&exclude, "exclude", "glob pattern to exclude (repeatable)")
	fs.Parse(args)

	if *inDir == "" || *basePath == "" {
		fmt.Println("required: --in, --base")
		os.Exit(1)
	}
	files, err := batch.Select(*inDir, batch.Options{
		Include:         include,
		Exclude:         exclude,
		CaseInsensitive: *caseInsensitive,
	})
	if err != nil {
		fmt.Println("select targets:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("no targets matched")
		os.Exit(1)
	}
	targets, err := batch.Targets(*inDir, files)
	if err != nil {
		fmt.Println("read targets:", err)
		os.Exit(1)
	}
	fmt.Printf("Selected %d targets under %s\n", len(files), *inDir)

	inputs := []string{*basePath}
	for _, f := range files {
		inputs = append(inputs, filepath.Join(*inDir, filepath.FromSlash(f)))
	}
	spec := mergeSpec{
		BasePath: *basePath,
		Output:   filepath.Join(*outDir, "merged.aio"),
		Profile:  *profilePath,
		Targets:  targets,
		Inputs:   inputs,
		Report:   filepath.Join(*outDir, "layout.json"),
		Manifest: filepath.Join(*outDir, "manifest.json"),
		Log:      filepath.Join(*outDir, "merges.jsonl"),
	}
	var metrics *common.Metrics
	if *metricsFlag {
		metrics = common.NewMetrics()
	}
	if err := runMerge(spec, metrics); err != nil {
		fmt.Println("merge:", err)
		os.Exit(1)
	}
	printMetrics(metrics, *metricsFlag)
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	layoutPath := fs.String("layout", "", "layout report JSON")
	accPath := fs.String("acceptance", "", "acceptance report JSON")
	pdfPath := fs.String("pdf", "", "output PDF")
	fs.Parse(args)

	if *pdfPath == "" {
		fmt.Println("required: --pdf")
		os.Exit(1)
	}
	if (*layoutPath == "") == (*accPath == "") {
		fmt.Println("exactly one of --layout or --acceptance is required")
		os.Exit(1)
	}
	if *layoutPath != "" {
		rep, err := report.LoadLayoutJSON(*layoutPath)
		if err != nil {
			fmt.Println("load layout:", err)
			os.Exit(1)
		}
		if err := report.SaveLayoutPDF(rep, *pdfPath); err != nil {
			fmt.Println("write pdf:", err)
			os.Exit(1)
		}
	} else {
		rep, err := report.LoadAcceptanceJSON(*accPath)
		if err != nil {
			fmt.Println("load acceptance:", err)
			os.Exit(1)
		}
		if err := report.SaveAcceptancePDF(rep, *pdfPath); err != nil {
			fmt.Println("write pdf:", err)
			os.Exit(1)
		}
	}
	fmt.Println("Wrote PDF:", *pdfPath)
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inputs := fs.String("inputs", "", "comma-separated paths")
	out := fs.String("out", "manifest.json", "output json")
	verifyPath := fs.String("verify", "", "manifest to verify against the filesystem")
	fs.Parse(args)

	if *verifyPath != "" {
		m, err := manifest.Load(*verifyPath)
		if err != nil {
			fmt.Println("load manifest:", err)
			os.Exit(1)
		}
		mismatches, err := manifest.Verify(m)
		if err != nil {
			fmt.Println("verify manifest:", err)
			os.Exit(1)
		}
		if len(mismatches) == 0 {
			fmt.Printf("Manifest OK (%d items)\n", len(m.Items))
			return
		}
		for _, line := range mismatches {
			fmt.Println(line)
		}
		os.Exit(1)
	}

	if *inputs == "" {
		fmt.Println("required: --inputs (or --verify)")
		os.Exit(1)
	}
	var paths []string
	for _, p := range strings.Split(*inputs, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		fmt.Println("no input paths specified")
		os.Exit(1)
	}
	m, err := manifest.Build(paths)
	if err != nil {
		fmt.Println("manifest build:", err)
		os.Exit(1)
	}
	if err := manifest.Save(m, *out); err != nil {
		fmt.Println("manifest save:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", *out)
}

func profileCmd(args []string) {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	in := fs.String("in", "", "device profile YAML")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	p, err := aio.LoadProfile(*in)
	if err != nil {
		fmt.Println("load profile:", err)
		os.Exit(1)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE")
	fmt.Fprintf(w, "name\t%s\n", p.Name)
	fmt.Fprintf(w, "deviceType\t0x%02X\n", p.DeviceType)
	fmt.Fprintf(w, "imageVersion\t0x%08X\n", p.ImageVersion)
	fmt.Fprintf(w, "updateControl\t0x%02X\n", p.UpdateControl)
	fmt.Fprintf(w, "vendorId\t0x%04X\n", p.VendorID)
	fmt.Fprintf(w, "productId\t0x%04X\n", p.ProductID)
	fmt.Fprintf(w, "uniqueId\t0x%04X\n", p.UniqueID)
	fmt.Fprintf(w, "entryVersion\t0x%04X\n", p.EntryVersion)
	w.Flush()
	fmt.Println("Profile OK")
}

func rulepackCmd(args []string) {
	if len(args) == 0 {
		rulepackUsage()
		os.Exit(1)
	}
	sub := args[0]
	switch sub {
	case "install":
		rulepackInstallCmd(args[1:])
	case "list":
		rulepackListCmd(args[1:])
	case "remove":
		rulepackRemoveCmd(args[1:])
	case "set-default":
		rulepackSetDefaultCmd(args[1:])
	default:
		fmt.Println("unknown rulepack subcommand")
		rulepackUsage()
		os.Exit(1)
	}
}

func rulepackUsage() {
	fmt.Println("rulepack commands:")
	fmt.Println("  install --file <rulepack.json|package.zip>")
	fmt.Println("  list")
	fmt.Println("  remove --id <rulepack> --version <version>")
	fmt.Println("  set-default --profile <profile> --id <rulepack> --version <version>")
}

func rulepackInstallCmd(args []string) {
	fs := flag.NewFlagSet("rulepack install", flag.ExitOnError)
	file := fs.String("file", "", "rule pack JSON or zip archive")
	fs.Parse(args)

	if *file == "" {
		fmt.Println("required: --file")
		os.Exit(1)
	}
	repo, err := rules.DefaultRepository()
	if err != nil {
		fmt.Println("open repository:", err)
		os.Exit(1)
	}
	installed, err := repo.InstallPackage(*file)
	if err != nil {
		fmt.Println("install rule pack:", err)
		os.Exit(1)
	}
	fmt.Printf("Installed %s@%s\n", installed.RulePack.RulePackId, installed.RulePack.Version)
}

func rulepackListCmd(args []string) {
	fs := flag.NewFlagSet("rulepack list", flag.ExitOnError)
	fs.Parse(args)
	repo, err := rules.DefaultRepository()
	if err != nil {
		fmt.Println("open repository:", err)
		os.Exit(1)
	}
	entries, err := repo.ListInstalled()
	if err != nil {
		fmt.Println("list rule packs:", err)
		os.Exit(1)
	}
	defaults, err := repo.Defaults()
	if err != nil {
		fmt.Println("load defaults:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No rule packs installed")
		return
	}
	byKey := make(map[string][]string)
	for profile, ref := range defaults {
		key := ref.RulePackId + "@" + ref.Version
		byKey[key] = append(byKey[key], profile)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tRULES\tDEFAULT FOR")
	for _, entry := range entries {
		key := entry.RulePack.RulePackId + "@" + entry.RulePack.Version
		profiles := byKey[key]
		sort.Strings(profiles)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			entry.RulePack.RulePackId,
			entry.RulePack.Version,
			len(entry.RulePack.Rules),
			strings.Join(profiles, ","),
		)
	}
	w.Flush()
}

func rulepackRemoveCmd(args []string) {
	fs := flag.NewFlagSet("rulepack remove", flag.ExitOnError)
	id := fs.String("id", "", "rule pack identifier")
	version := fs.String("version", "", "rule pack version")
	fs.Parse(args)

	if *id == "" || *version == "" {
		fmt.Println("required: --id, --version")
		os.Exit(1)
	}
	repo, err := rules.DefaultRepository()
	if err != nil {
		fmt.Println("open repository:", err)
		os.Exit(1)
	}
	if err := repo.Remove(*id, *version); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("rule pack not found")
		} else {
			fmt.Println("remove rule pack:", err)
		}
		os.Exit(1)
	}
	fmt.Printf("Removed %s@%s\n", *id, *version)
}

func rulepackSetDefaultCmd(args []string) {
	fs := flag.NewFlagSet("rulepack set-default", flag.ExitOnError)
	profile := fs.String("profile", "", "profile name")
	id := fs.String("id", "", "rule pack identifier")
	version := fs.String("version", "", "rule pack version")
	fs.Parse(args)

	if *profile == "" || *id == "" || *version == "" {
		fmt.Println("required: --profile, --id, --version")
		os.Exit(1)
	}
	repo, err := rules.DefaultRepository()
	if err != nil {
		fmt.Println("open repository:", err)
		os.Exit(1)
	}
	rp, err := repo.Load(*id, *version)
	if err != nil {
		fmt.Println("load rule pack:", err)
		os.Exit(1)
	}
	if rp.Profile != "" && rp.Profile != *profile {
		fmt.Printf("Warning: rule pack targets profile %s\n", rp.Profile)
	}
	if err := repo.SetDefaultForProfile(*profile, rules.RulePackRef{RulePackId: *id, Version: *version}); err != nil {
		fmt.Println("set default:", err)
		os.Exit(1)
	}
	fmt.Printf("Default for profile %s set to %s@%s\n", *profile, *id, *version)
}
