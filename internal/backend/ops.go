// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"fmt"

	"github.com/tomtom215/gathermap/internal/models"
)

// Operation names. They label metrics and key the mock registry.
const (
	OpHealth = "health"

	OpLogin        = "members.login"
	OpJoin         = "members.join"
	OpMemberGet    = "members.get"
	OpMemberUpdate = "members.update"
	OpPushToken    = "members.push_token"

	OpGroupsList        = "groups.list"
	OpGroupCreate       = "groups.create"
	OpGroupGet          = "groups.get"
	OpGroupUpdate       = "groups.update"
	OpGroupDelete       = "groups.delete"
	OpGroupJoin         = "groups.join"
	OpGroupMembers      = "groups.members"
	OpGroupMemberRemove = "groups.members.remove"
	OpGroupMemberRole   = "groups.members.role"

	OpLocationCreate   = "locations.create"
	OpLocationsLatest  = "locations.latest"
	OpLocationsHistory = "locations.history"

	OpSchedulesList     = "schedules.list"
	OpScheduleCreate    = "schedules.create"
	OpScheduleUpdate    = "schedules.update"
	OpScheduleDelete    = "schedules.delete"
	OpSchedulesUpcoming = "schedules.upcoming"

	OpNotificationsList = "notifications.list"
	OpNotificationRead  = "notifications.read"
	OpNotificationLog   = "notifications.log"
)

// Paths relative to /api/v1.

func MemberPath(mtIdx models.Idx) string { return fmt.Sprintf("/members/%d", mtIdx) }

func MemberPushTokenPath(mtIdx models.Idx) string {
	return fmt.Sprintf("/members/%d/push-token", mtIdx)
}

func MemberLocationsPath(mtIdx models.Idx) string {
	return fmt.Sprintf("/members/%d/locations", mtIdx)
}

func GroupPath(sgtIdx models.Idx) string { return fmt.Sprintf("/groups/%d", sgtIdx) }

func GroupMembersPath(sgtIdx models.Idx) string {
	return fmt.Sprintf("/groups/%d/members", sgtIdx)
}

func GroupMemberPath(sgtIdx, sgdtIdx models.Idx) string {
	return fmt.Sprintf("/groups/%d/members/%d", sgtIdx, sgdtIdx)
}

func GroupMemberRolePath(sgtIdx, sgdtIdx models.Idx) string {
	return fmt.Sprintf("/groups/%d/members/%d/role", sgtIdx, sgdtIdx)
}

func GroupLatestLocationsPath(sgtIdx models.Idx) string {
	return fmt.Sprintf("/groups/%d/locations/latest", sgtIdx)
}

func GroupSchedulesPath(sgtIdx models.Idx) string {
	return fmt.Sprintf("/groups/%d/schedules", sgtIdx)
}

func SchedulePath(sstIdx models.Idx) string { return fmt.Sprintf("/schedules/%d", sstIdx) }

func NotificationReadPath(pltIdx models.Idx) string {
	return fmt.Sprintf("/notifications/%d/read", pltIdx)
}

const (
	LoginPath             = "/members/login"
	JoinPath              = "/members/join"
	GroupsPath            = "/groups"
	GroupJoinPath         = "/groups/join"
	LocationsPath         = "/locations"
	UpcomingSchedulesPath = "/schedules/upcoming"
	NotificationsPath     = "/notifications"
)
