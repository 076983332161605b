// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package supervisor runs the CLI's long-lived services under a suture v4
tree.

	RootSupervisor ("sensorboard")
	├── RealtimeSupervisor ("realtime-layer")
	│   ├── SessionService (watch)
	│   └── HubService (devserver)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (devserver)

Supervisor events are logged through sutureslog, which writes to zerolog
via logging.NewSlogLogger. Every restart also increments
supervisor_service_restarts_total{supervisor,service}.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddRealtimeService(services.NewSessionService("watch", sess, cfg.MaxReconnectAttempts, 0))
	return tree.Serve(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
