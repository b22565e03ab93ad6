// Package hw connects the state tracker and the primitive batcher to a
// concrete hardware generation.
//
// # Backend Registration
//
// Backends register themselves from init functions and are selected by
// name or by priority:
//
//	import _ "github.com/gogpu/pushbuf/hw/nv04"
//
//	b, err := hw.Open("")      // best available backend
//	b, err := hw.Open("nv04")  // a specific one
//
// # Drawing
//
// A Context owns the state tracker of one channel. Every draw first writes
// the state that changed since the previous draw and then the primitive
// batches:
//
//	ctx, err := hw.NewContext(ch, b, prim.Config{})
//	if err != nil {
//		return err
//	}
//	ctx.Tracker().BindFramebuffer(fb)
//	if _, err := ctx.Draw(prim.Triangles, verts, prim.Sequential{Count: 6}); err != nil {
//		return err
//	}
//	return ctx.Flush(context.Background())
//
// After every flush the categories a backend reports as buffer-backed are
// marked dirty so that their relocations are written into the next
// submission.
package hw
