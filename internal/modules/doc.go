// Package modules contains the self-contained application features.
//
// Each subdirectory is a module implementing module.Module. Modules are
// listed in app.NewModules and mounted by the server under their name.
package modules
