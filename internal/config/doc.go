// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles snailgpt configuration: TOML file at
// ~/.snailgpt/config.toml with environment overrides, 0600
// enforcement on files holding the API token, and an fsnotify-based
// hot-reload watcher.
package config
