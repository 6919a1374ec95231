package delta

import "github.com/go-svn/svncore/svndiff"

// pairBaton is the composite baton handed out by a Compose editor: the
// corresponding baton from each of the two underlying editors, kept
// together so later calls can be replayed against both.
type pairBaton struct {
	a, b interface{}
}

// composeEditor drives two editors in lockstep from a single stream of
// calls, first, then second. The two editors are independent, and the
// caller decides which of the two is a validator (such as a BatonTracker
// over its own sink) and which is the real sink.
type composeEditor struct {
	first, second Editor
}

// Compose returns an Editor that forwards every call to both first and
// second in order, pairing up the batons each returns. A typical use is
// feeding one driven tree through two independent consumers (e.g. a
// checksum-accumulating editor alongside the real storage editor)
// without either needing to know about the other.
func Compose(first, second Editor) Editor {
	return &composeEditor{first: first, second: second}
}

func (c *composeEditor) SetTargetRevision(rev int64) error {
	if err := c.first.SetTargetRevision(rev); err != nil {
		return err
	}
	return c.second.SetTargetRevision(rev)
}

func (c *composeEditor) OpenRoot(baseRev int64) (interface{}, error) {
	a, err := c.first.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	b, err := c.second.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	return &pairBaton{a, b}, nil
}

func (c *composeEditor) DeleteEntry(path string, rev int64, parent interface{}) error {
	p := parent.(*pairBaton)
	if err := c.first.DeleteEntry(path, rev, p.a); err != nil {
		return err
	}
	return c.second.DeleteEntry(path, rev, p.b)
}

func (c *composeEditor) AddDirectory(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	p := parent.(*pairBaton)
	a, err := c.first.AddDirectory(path, p.a, copyFrom)
	if err != nil {
		return nil, err
	}
	b, err := c.second.AddDirectory(path, p.b, copyFrom)
	if err != nil {
		return nil, err
	}
	return &pairBaton{a, b}, nil
}

func (c *composeEditor) OpenDirectory(path string, parent interface{}, baseRev int64) (interface{}, error) {
	p := parent.(*pairBaton)
	a, err := c.first.OpenDirectory(path, p.a, baseRev)
	if err != nil {
		return nil, err
	}
	b, err := c.second.OpenDirectory(path, p.b, baseRev)
	if err != nil {
		return nil, err
	}
	return &pairBaton{a, b}, nil
}

func (c *composeEditor) ChangeDirProp(dir interface{}, name string, value []byte, hasValue bool) error {
	p := dir.(*pairBaton)
	if err := c.first.ChangeDirProp(p.a, name, value, hasValue); err != nil {
		return err
	}
	return c.second.ChangeDirProp(p.b, name, value, hasValue)
}

func (c *composeEditor) CloseDirectory(dir interface{}) error {
	p := dir.(*pairBaton)
	if err := c.first.CloseDirectory(p.a); err != nil {
		return err
	}
	return c.second.CloseDirectory(p.b)
}

func (c *composeEditor) AbsentDirectory(path string, parent interface{}) error {
	p := parent.(*pairBaton)
	if err := c.first.AbsentDirectory(path, p.a); err != nil {
		return err
	}
	return c.second.AbsentDirectory(path, p.b)
}

func (c *composeEditor) AddFile(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	p := parent.(*pairBaton)
	a, err := c.first.AddFile(path, p.a, copyFrom)
	if err != nil {
		return nil, err
	}
	b, err := c.second.AddFile(path, p.b, copyFrom)
	if err != nil {
		return nil, err
	}
	return &pairBaton{a, b}, nil
}

func (c *composeEditor) OpenFile(path string, parent interface{}, baseRev int64) (interface{}, error) {
	p := parent.(*pairBaton)
	a, err := c.first.OpenFile(path, p.a, baseRev)
	if err != nil {
		return nil, err
	}
	b, err := c.second.OpenFile(path, p.b, baseRev)
	if err != nil {
		return nil, err
	}
	return &pairBaton{a, b}, nil
}

func (c *composeEditor) ApplyTextDelta(file interface{}, baseChecksum string) (WindowHandler, error) {
	p := file.(*pairBaton)
	ha, err := c.first.ApplyTextDelta(p.a, baseChecksum)
	if err != nil {
		return nil, err
	}
	hb, err := c.second.ApplyTextDelta(p.b, baseChecksum)
	if err != nil {
		return nil, err
	}
	return func(w *svndiff.Window) error {
		if err := ha(w); err != nil {
			return err
		}
		return hb(w)
	}, nil
}

func (c *composeEditor) ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error {
	p := file.(*pairBaton)
	if err := c.first.ChangeFileProp(p.a, name, value, hasValue); err != nil {
		return err
	}
	return c.second.ChangeFileProp(p.b, name, value, hasValue)
}

func (c *composeEditor) CloseFile(file interface{}, resultChecksum string) error {
	p := file.(*pairBaton)
	if err := c.first.CloseFile(p.a, resultChecksum); err != nil {
		return err
	}
	return c.second.CloseFile(p.b, resultChecksum)
}

func (c *composeEditor) AbsentFile(path string, parent interface{}) error {
	p := parent.(*pairBaton)
	if err := c.first.AbsentFile(path, p.a); err != nil {
		return err
	}
	return c.second.AbsentFile(path, p.b)
}

func (c *composeEditor) CloseEdit() error {
	if err := c.first.CloseEdit(); err != nil {
		return err
	}
	return c.second.CloseEdit()
}

func (c *composeEditor) AbortEdit() error {
	err1 := c.first.AbortEdit()
	err2 := c.second.AbortEdit()
	if err1 != nil {
		return err1
	}
	return err2
}
