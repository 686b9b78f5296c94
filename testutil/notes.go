package testutil

import (
	"fmt"
	"sort"
	"testing"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/expect"
	"golang.org/x/tools/go/ssa"
)

// Note is an expectation written as a "//@ name(args...)" comment, together
// with the function it appears in.
type Note struct {
	*expect.Note
	Fun *ssa.Function
}

func (n Note) String() string {
	return fmt.Sprintf("%s(%v) in %s", n.Name, n.Args, n.Fun)
}

// StringArg returns the i'th argument, which must be a string literal.
func (n Note) StringArg(t *testing.T, i int) string {
	t.Helper()
	if i >= len(n.Args) {
		t.Fatalf("%s: missing argument %d", n, i)
	}
	s, ok := n.Args[i].(string)
	if !ok {
		t.Fatalf("%s: argument %d is %T, not a string", n, i, n.Args[i])
	}
	return s
}

// NotesManager holds the notes of a loaded package.
type NotesManager struct {
	loadRes LoadResult
	notes   []Note
}

// MakeNotesManager extracts the notes of every file of the package.
func MakeNotesManager(t *testing.T, loadRes LoadResult) NotesManager {
	t.Helper()

	n := NotesManager{loadRes: loadRes}
	for _, file := range loadRes.Files {
		notes, err := expect.ExtractGo(loadRes.Fset, file)
		if err != nil {
			t.Fatal(err)
		}

		for _, note := range notes {
			path, _ := astutil.PathEnclosingInterval(file, note.Pos, note.Pos)
			fun := ssa.EnclosingFunction(loadRes.Pkg, path)
			if fun == nil {
				t.Fatalf("note %s at %s is outside of any function",
					note.Name, loadRes.Fset.Position(note.Pos))
			}
			n.notes = append(n.notes, Note{note, fun})
		}
	}

	sort.SliceStable(n.notes, func(i, j int) bool {
		return n.notes[i].Pos < n.notes[j].Pos
	})
	return n
}

// Notes returns every note in source order.
func (n NotesManager) Notes() []Note { return n.notes }

// FindAllNotes returns the notes with the given name in source order.
func (n NotesManager) FindAllNotes(name string) (res []Note) {
	for _, note := range n.notes {
		if note.Name == name {
			res = append(res, note)
		}
	}
	return
}

// ForEachNote calls do on the notes with the given name.
func (n NotesManager) ForEachNote(name string, do func(Note)) {
	for _, note := range n.FindAllNotes(name) {
		do(note)
	}
}

func (n NotesManager) LoadResult() LoadResult { return n.loadRes }
