package backend

// SmartFixTool drives the SmartFix repair binary.
type SmartFixTool struct{}

func (SmartFixTool) Name() string    { return "smartfix" }
func (SmartFixTool) Command() string { return "./main.native" }

func (SmartFixTool) BuildArgs(inv Invocation) []string {
	return []string{
		"-input", inv.InputPath,
		"-mode", "repair",
		"-outdir", inv.OutDir,
		"-main", inv.Target,
		"-repair_loop_timeout", itoa(inv.Timeouts.RepairLoop),
		"-repair_tool_timeout", itoa(inv.Timeouts.RepairTool),
		"-z3timeout", itoa(inv.Timeouts.Solver),
	}
}
