// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

// Version is the sessionkit release. Release builds set it with
// -ldflags "-X sessionkit/cli/cmd.Version=<tag>".
var Version = "0.0.0-dev"
