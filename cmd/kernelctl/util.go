package main

import "github.com/corvid-os/kernel/internal/proc"

func membershipName(m proc.Membership) string {
	switch m {
	case proc.MemberReady:
		return "ready"
	case proc.MemberSleeper:
		return "sleeping"
	case proc.MemberSenderQueue:
		return "sender-queue"
	case proc.MemberReceiverQueue:
		return "receiver-queue"
	default:
		return "-"
	}
}
