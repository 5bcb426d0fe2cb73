// Package catalog filters an open-science metadata tree down to a published
// subset.
//
// The tree has a root catalogue, a projects catalogue linking one collection
// document per project, and a themes catalogue linking one directory per
// theme. A Builder runs three stages against a Store:
//
//   - BuildProjects keeps the projects accepted by a KeepPredicate, strips
//     their experiment and workflow links and records which themes they
//     belong to in a ThemeIndex.
//   - BuildThemes copies each theme that still has projects and rewrites its
//     child links to point at exactly those projects.
//   - BuildMainCatalogue prunes the root catalogue to the two top-level
//     groupings.
//
// Every link left in the output resolves to a document in the output.
package catalog
