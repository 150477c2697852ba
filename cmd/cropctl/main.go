// CropAdvisor - Crop recommendations and cultivation calendars for smallholder farms.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

func main() {
	Execute()
}
