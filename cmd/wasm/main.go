//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/graphdeck/graphdeck/engine-go/internal/engine"
)

var ed *engine.Editor

func main() {
	ed = engine.NewEditor()

	// Create the editor API object
	graphdeckEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	graphdeckEngine.Set("loadDocument", js.FuncOf(loadDocument))
	graphdeckEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	graphdeckEngine.Set("executeCommand", js.FuncOf(executeCommand))
	graphdeckEngine.Set("undo", js.FuncOf(undo))
	graphdeckEngine.Set("redo", js.FuncOf(redo))
	graphdeckEngine.Set("setSelection", js.FuncOf(setSelection))
	graphdeckEngine.Set("applyLayout", js.FuncOf(applyLayout))
	graphdeckEngine.Set("cancelLayout", js.FuncOf(cancelLayout))
	graphdeckEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← backend) ---
	graphdeckEngine.Set("saveDocument", js.FuncOf(saveDocument))
	graphdeckEngine.Set("canUndo", js.FuncOf(canUndo))
	graphdeckEngine.Set("canRedo", js.FuncOf(canRedo))
	graphdeckEngine.Set("hitTest", js.FuncOf(hitTest))
	graphdeckEngine.Set("nodesAt", js.FuncOf(nodesAt))
	graphdeckEngine.Set("getSelection", js.FuncOf(getSelection))
	graphdeckEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))

	// Register on global scope
	js.Global().Set("graphdeckEngine", graphdeckEngine)

	// Signal that WASM is ready
	js.Global().Set("graphdeckWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	jsonData := args[0].String()
	if err := ed.LoadDocument(jsonData); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	ed.LoadSampleDocument()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func executeCommand(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing command JSON"})
	}
	ok := ed.ExecuteJSON(args[0].String())
	return js.ValueOf(map[string]interface{}{"ok": ok})
}

func undo(this js.Value, args []js.Value) interface{} {
	if err := ed.Undo(); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func redo(this js.Value, args []js.Value) interface{} {
	if err := ed.Redo(); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		ed.SetSelection(nil)
		return nil
	}

	arr := args[0]
	if arr.Type() != js.TypeObject {
		ed.SetSelection(nil)
		return nil
	}

	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	ed.SetSelection(ids)
	return nil
}

func applyLayout(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing layout JSON"})
	}

	var result engine.LayoutResult
	if err := json.Unmarshal([]byte(args[0].String()), &result); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	animate := len(args) > 1 && args[1].Truthy()
	durationMS := 300
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		durationMS = args[2].Int()
	}

	ed.ApplyLayout(result, animate, time.Duration(durationMS)*time.Millisecond)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func cancelLayout(this js.Value, args []js.Value) interface{} {
	ed.Animator().Cancel()
	return nil
}

// tick advances the animator and flushes a pending render pass. Returns
// whether an animation is still running so the caller knows to keep its
// requestAnimationFrame loop alive.
func tick(this js.Value, args []js.Value) interface{} {
	ed.Tick(time.Now())
	return js.ValueOf(ed.Animator().State() == engine.AnimAnimating)
}

// --- Query Handlers ---

func saveDocument(this js.Value, args []js.Value) interface{} {
	data, err := ed.SaveDocument()
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(data)
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.CanRedo())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	x := args[0].Float()
	y := args[1].Float()
	return js.ValueOf(ed.HitTest(x, y))
}

func nodesAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("[]")
	}
	ids := ed.NodesAt(args[0].Float(), args[1].Float())
	out, err := json.Marshal(ids)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(out))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	out, err := json.Marshal(ed.Selection())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(out))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	out, err := json.Marshal(ed.SelectionBounds())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(out))
}
