package services

import "errors"

// ErrDatasetNotLoaded is returned while no dataset has been published.
var ErrDatasetNotLoaded = errors.New("dataset not loaded")
