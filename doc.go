// Package marp turns .marp Markdown slide decks into themed HTML plus a
// metadata record, delegating layout to the external Marp CLI.
//
// # Quick Start
//
// Create a pipeline, process a deck, and close when done:
//
//	p, err := marp.New(marp.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err) // invalid config or no marp executable
//	}
//	defer p.Close()
//
//	src, err := marp.ReadSource("talks/intro.marp")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc := p.Process(ctx, src)
//	if doc.Failed() {
//	    log.Println(doc.Err) // doc.HTML still holds a renderable error panel
//	}
//	os.WriteFile("intro.html", []byte(doc.HTML), 0o644)
//
// # Processing Stages
//
// Process runs each deck through these stages:
//
//  1. Frontmatter extraction (the leading --- block, scalar values only)
//  2. Image rewriting (local targets become placeholders, missing ones warn)
//  3. Theme resolution (frontmatter theme, else Config.DefaultTheme)
//  4. Diagram preparation (mermaid fences, see Config.MermaidStrategy)
//  5. Rendering via the marp executable, stdin to stdout
//  6. Placeholder substitution and metadata assembly
//
// Only New can fail. A deck that cannot be rendered yields a Document whose
// HTML is a red-bordered error panel and whose Err holds the reason.
//
// # Locating Marp
//
// The executable is taken from Config.RendererBin, then MARP_CLI_BIN, then
// node_modules/.bin next to the program and the working directory, then PATH.
//
// # Themes
//
// Themes are .scss or .css files in Config.ThemesDir or, when unset, the
// first existing themes directory next to the executable or in the working
// directory. Unknown names fall back to the renderer's "default" theme.
//
// # Batch Processing
//
// ProcessAll renders several decks concurrently and keeps their order:
//
//	docs := p.ProcessAll(ctx, sources)
//
// Combine WithCache with a cache.Store to skip the renderer for decks that
// did not change.
package marp
