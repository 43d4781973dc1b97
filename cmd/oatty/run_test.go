package main

import (
	"testing"

	"github.com/oattyio/oatty/pkg/catalog"
)

func TestUsesPluginsDetectsPluginCommand(t *testing.T) {
	cats := []catalog.Catalog{{
		Manifest: catalog.Manifest{Commands: []catalog.Command{
			{Kind: catalog.ExecutionHTTP},
			{Kind: catalog.ExecutionPlugin},
		}},
	}}
	if !usesPlugins(cats) {
		t.Error("usesPlugins() = false, want true")
	}
}

func TestUsesPluginsFalseForHTTPOnly(t *testing.T) {
	cats := []catalog.Catalog{{
		Manifest: catalog.Manifest{Commands: []catalog.Command{
			{Kind: catalog.ExecutionHTTP},
		}},
	}}
	if usesPlugins(cats) {
		t.Error("usesPlugins() = true, want false")
	}
}
