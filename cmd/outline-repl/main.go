package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hydranotes/outline"
)

// REPL holds the state of the interactive session
type REPL struct {
	ws     *outline.Workspace
	doc    *outline.Document
	reader *bufio.Reader
}

func main() {
	fmt.Println("Outline REPL - Interactive Outline Editor Demo")
	fmt.Println("Type 'help' for available commands, 'quit' to exit")
	fmt.Println()

	repl := &REPL{
		reader: bufio.NewReader(os.Stdin),
	}

	var opts outline.WorkspaceOptions
	if len(os.Args) > 1 {
		opts.StorePath = os.Args[1]
	}
	ws, err := outline.NewWorkspace(opts)
	if err != nil {
		fmt.Printf("Error initializing workspace: %v\n", err)
		os.Exit(1)
	}
	repl.ws = ws

	for {
		fmt.Print("outline> ")
		input, err := repl.reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !repl.handleCommand(input) {
			break
		}
	}

	ws.Close()
}

func (r *REPL) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		r.printHelp()

	case "quit", "exit":
		fmt.Println("Goodbye!")
		return false

	case "new":
		r.cmdNew(args)

	case "docs":
		r.cmdDocs()

	case "tree":
		r.cmdTree()

	case "add":
		r.cmdAdd(args)

	case "split":
		r.cmdSplit(args)

	case "mergeup":
		r.cmdMergeUp(args)

	case "mergedown":
		r.cmdMergeDown(args)

	case "indent":
		r.cmdIndent(args)

	case "outdent":
		r.cmdOutdent(args)

	case "move":
		r.cmdMove(args)

	case "del":
		r.cmdDelete(args)

	case "delsub":
		r.cmdDeleteSubtree(args)

	case "insert":
		r.cmdInsert(args)

	case "portal":
		r.cmdPortal(args)

	case "render":
		r.cmdRender(args)

	case "save":
		r.cmdSave()

	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}

	return true
}

func (r *REPL) printHelp() {
	help := `
Available Commands:
-------------------

DOCUMENTS:
  new <title>                 Create a new document and switch to it
  docs                        List open documents
  save                        Persist the current document (needs a store path)

INSPECTION:
  tree                        Print the current document's outline

EDITING (blocks are addressed by id prefix, see 'tree'):
  add <parent|-> <text...>    Add a block ( - for top level)
  insert <id> <off> <text...> Insert text into a block
  split <id> <offset>         Split a block at a text offset
  mergeup <id>                Merge a block into the line above (backspace)
  mergedown <id>              Merge the next sibling into a block (delete)
  indent <id>                 Indent under the previous sibling
  outdent <id>                Outdent next to the parent
  move <id> <target> <before|after|into>
  del <id>                    Delete a block, promoting its children
  delsub <id>                 Delete a block with its whole subtree

PORTALS:
  portal <parent|-> <sourceid>  Create a portal mirroring a block
  render <id>                   Show a portal's projected state

OTHER:
  help                        Show this help message
  quit, exit                  Exit the REPL
`
	fmt.Println(help)
}

func (r *REPL) cmdNew(args []string) {
	title := strings.Join(args, " ")
	if title == "" {
		title = "untitled"
	}
	r.doc = r.ws.NewDocument(title)
	fmt.Printf("Created document %q (%s)\n", title, r.doc.ID())
}

func (r *REPL) cmdDocs() {
	fmt.Println("(current document marked with *)")
	if r.doc != nil {
		fmt.Printf("* %s  %s\n", r.doc.ID(), r.doc.Title())
	}
}

func (r *REPL) requireDoc() bool {
	if r.doc == nil {
		fmt.Println("No document. Use 'new <title>' first.")
		return false
	}
	return true
}

// resolve expands an id prefix to a full block id.
func (r *REPL) resolve(prefix string) (outline.BlockID, bool) {
	if !r.requireDoc() {
		return "", false
	}
	t := r.doc.Tree()
	var match outline.BlockID
	count := 0
	var walk func(ids []outline.BlockID)
	walk = func(ids []outline.BlockID) {
		for _, id := range ids {
			if strings.HasPrefix(string(id), prefix) {
				match = id
				count++
			}
			walk(t.ChildrenOf(id))
		}
	}
	walk(t.Roots())
	if count == 0 {
		fmt.Printf("No block matches %q\n", prefix)
		return "", false
	}
	if count > 1 {
		fmt.Printf("Ambiguous id prefix %q (%d matches)\n", prefix, count)
		return "", false
	}
	return match, true
}

func (r *REPL) cmdTree() {
	if !r.requireDoc() {
		return
	}
	t := r.doc.Tree()
	var walk func(ids []outline.BlockID, depth int)
	walk = func(ids []outline.BlockID, depth int) {
		for _, id := range ids {
			b, ok := t.Get(id)
			if !ok {
				continue
			}
			marker := "-"
			switch b.Kind() {
			case outline.KindPortal:
				marker = "@"
			case outline.KindDescriptor:
				marker = "%"
			case outline.KindHeading:
				marker = "#"
			}
			fmt.Printf("%s%s [%s] %s\n", strings.Repeat("  ", depth), marker, string(id)[:8], b.Text())
			walk(t.ChildrenOf(id), depth+1)
		}
	}
	walk(t.Roots(), 0)
}

func (r *REPL) cmdAdd(args []string) {
	if !r.requireDoc() || len(args) < 1 {
		fmt.Println("Usage: add <parent|-> <text...>")
		return
	}
	var parent outline.BlockID
	if args[0] != "-" {
		id, ok := r.resolve(args[0])
		if !ok {
			return
		}
		parent = id
	}
	text := strings.Join(args[1:], " ")
	res := r.doc.Engine().CreateBlock(parent, -1, outline.KindBullet, text)
	r.report(res)
}

func (r *REPL) cmdSplit(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: split <id> <offset>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	off, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("Bad offset:", args[1])
		return
	}
	r.report(r.doc.Engine().Split(outline.EditContext{Block: id, Offset: off}))
}

func (r *REPL) cmdMergeUp(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: mergeup <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	r.report(r.doc.Engine().MergeStart(outline.EditContext{Block: id}))
}

func (r *REPL) cmdMergeDown(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: mergedown <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	r.report(r.doc.Engine().MergeEnd(outline.EditContext{Block: id}))
}

func (r *REPL) cmdIndent(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: indent <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	r.report(r.doc.Engine().Indent(outline.EditContext{Block: id}))
}

func (r *REPL) cmdOutdent(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: outdent <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	r.report(r.doc.Engine().Outdent(outline.EditContext{Block: id}))
}

func (r *REPL) cmdMove(args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: move <id> <target> <before|after|into>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	target, ok := r.resolve(args[1])
	if !ok {
		return
	}
	var placement outline.Placement
	switch args[2] {
	case "before":
		placement = outline.PlaceBefore
	case "after":
		placement = outline.PlaceAfter
	case "into":
		placement = outline.PlaceInside
	default:
		fmt.Println("Placement must be before, after, or into")
		return
	}
	r.report(r.doc.Engine().Move(id, target, placement))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: del <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	r.report(r.doc.Engine().DeleteWithReparent(id))
}

func (r *REPL) cmdDeleteSubtree(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: delsub <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	r.report(r.doc.Engine().DeleteSubtree(id, false))
}

func (r *REPL) cmdInsert(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: insert <id> <offset> <text...>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	off, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("Bad offset:", args[1])
		return
	}
	text := strings.Join(args[2:], " ")
	r.report(r.doc.Engine().InsertText(outline.EditContext{Block: id, Offset: off}, text))
}

func (r *REPL) cmdPortal(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: portal <parent|-> <sourceid>")
		return
	}
	var parent outline.BlockID
	if args[0] != "-" {
		id, ok := r.resolve(args[0])
		if !ok {
			return
		}
		parent = id
	}
	source, ok := r.resolve(args[1])
	if !ok {
		return
	}
	m, err := r.ws.CreatePortal(r.doc, parent, -1, r.doc.ID(), source)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Created portal %s (%s)\n", string(m.Block())[:8], m.SyncStatus())
}

func (r *REPL) cmdRender(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: render <id>")
		return
	}
	id, ok := r.resolve(args[0])
	if !ok {
		return
	}
	m, err := r.ws.MirrorFor(r.doc, id)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	state := m.RenderState()
	fmt.Printf("status=%s\n", state.Status)
	if state.Placeholder != "" {
		fmt.Println(state.Placeholder)
		return
	}
	fmt.Println(state.Text)
	var walk func(nodes []outline.RenderNode, depth int)
	walk = func(nodes []outline.RenderNode, depth int) {
		for _, n := range nodes {
			fmt.Printf("%s- %s\n", strings.Repeat("  ", depth+1), n.Text)
			walk(n.Children, depth+1)
		}
	}
	walk(state.Children, 0)
}

func (r *REPL) cmdSave() {
	if !r.requireDoc() {
		return
	}
	if err := r.doc.Close(); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Saved and closed.")
	r.doc = nil
}

func (r *REPL) report(res outline.Result) {
	switch res.Outcome {
	case outline.OutcomeApplied:
		if res.Cursor.Block != "" {
			fmt.Printf("ok, cursor at %s:%d\n", string(res.Cursor.Block)[:8], res.Cursor.Offset)
		} else {
			fmt.Println("ok")
		}
	case outline.OutcomeNoOp:
		fmt.Println("no-op")
	case outline.OutcomeRejected:
		fmt.Println("rejected:", res.Err)
	case outline.OutcomeQueued:
		fmt.Println("queued")
	}
}
