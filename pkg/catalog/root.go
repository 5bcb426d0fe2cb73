package catalog

// DefaultTitle is the title given to the published root catalogue.
const DefaultTitle = "APEx Documentation Repository"

// BuildMainCatalogue rewrites the root catalogue at sourcePath so it links
// only to the top-level groupings, retitles it and saves it at targetPath.
// An empty title selects DefaultTitle.
func (b *Builder) BuildMainCatalogue(sourcePath, targetPath, title string) error {
	if title == "" {
		title = DefaultTitle
	}

	catalogue, err := b.store.Load(sourcePath)
	if err != nil {
		return err
	}
	catalogue, err = catalogue.WithLinks(FilterRootLinks(catalogue.Links()))
	if err != nil {
		return err
	}
	catalogue, err = catalogue.WithTitle(title)
	if err != nil {
		return err
	}

	b.obs.Debug("Writing main catalogue")
	return b.store.Save(targetPath, catalogue)
}
