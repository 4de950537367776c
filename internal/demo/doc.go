// Package demo holds the sample services shipped with injectord. The debug
// and release profiles bind the same interfaces to different implementations
// and lifecycles. Walkthrough narrates how each lifecycle behaves and Handler
// shows the same over HTTP, one scope per request.
package demo
