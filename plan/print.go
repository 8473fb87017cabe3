package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/Olex1313/mhs-db-join/join"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Printing the plan out, for testing, debugging and --explain.

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func (self *Plan) Dump() string {
	buf := &strings.Builder{}
	self.printJoin(buf)
	self.printInput("Left", &self.Left, buf)
	self.printInput("Right", &self.Right, buf)
	self.printConfig(buf)
	return buf.String()
}

func (self *Plan) printJoin(
	buf *strings.Builder,
) {
	buf.WriteString("##> Join\n")
	buf.WriteString(fmt.Sprintf("Kind: %s\n", self.Args.Kind))
	buf.WriteString(fmt.Sprintf("Algorithm: %s\n", self.Algorithm))
	buf.WriteString(fmt.Sprintf("Forced: %v\n", self.Forced))
	buf.WriteString(fmt.Sprintf("Reason: %s\n", self.Reason))
	if self.Algorithm == join.AlgoHash {
		buf.WriteString(fmt.Sprintf("BuildSide: %s\n", self.BuildSide()))
	}
}

func (self *Plan) printInput(
	name string,
	md *FileMetadata,
	buf *strings.Builder,
) {
	buf.WriteString(fmt.Sprintf("##> %s\n", name))
	buf.WriteString(fmt.Sprintf("Path: %s\n", md.Path))
	buf.WriteString(fmt.Sprintf("Field: %d\n", md.Field+1))
	buf.WriteString(fmt.Sprintf("Size: %s\n", formatSize(md.Size)))
}

func (self *Plan) printConfig(
	buf *strings.Builder,
) {
	buf.WriteString("##> Config\n")
	buf.WriteString(fmt.Sprintf("Separator: %q\n", self.Config.Codec.Separator))
	buf.WriteString(fmt.Sprintf("MemoryBudget: %s\n", formatSize(self.Config.MemoryBudget)))
	buf.WriteString(fmt.Sprintf("NestedLoopLimit: %s\n", formatSize(self.Config.NestedLoopLimit)))
	if self.Algorithm == join.AlgoSortMerge {
		buf.WriteString(fmt.Sprintf("ChunkRows: %d\n", self.Config.ChunkRows))
		buf.WriteString(fmt.Sprintf("TempDir: %s\n", self.Config.TempDir))
	}
}

// Explain renders the plan as a table of both inputs followed by the
// chosen algorithm.
func (self *Plan) Explain(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"side", "path", "field", "size", "role"})

	roles := [2]string{"", ""}
	if self.Algorithm == join.AlgoHash {
		roles[self.BuildSide()] = "build"
		roles[self.BuildSide().Other()] = "probe"
	}
	table.Append([]string{
		"left",
		self.Left.Path,
		fmt.Sprintf("%d", self.Left.Field+1),
		formatSize(self.Left.Size),
		roles[join.SideLeft],
	})
	table.Append([]string{
		"right",
		self.Right.Path,
		fmt.Sprintf("%d", self.Right.Field+1),
		formatSize(self.Right.Size),
		roles[join.SideRight],
	})
	table.Render()

	forced := ""
	if self.Forced {
		forced = " (forced)"
	}
	fmt.Fprintf(
		w,
		"%s %s join using %s%s: %s\n",
		color.New(color.Bold).Sprint("plan:"),
		self.Args.Kind,
		color.CyanString(self.Algorithm.String()),
		forced,
		self.Reason,
	)
}
