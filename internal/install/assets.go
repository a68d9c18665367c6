package install

// Built-in files rendered into the installation when the source tree does
// not ship its own. Placeholders are resolved by internal/template; paths are
// inserted verbatim, so config.Validate keeps quoting characters out of them.

const runScriptTemplate = `#!/bin/bash
# Launch Moinsy with elevated privileges. Generated by moinsy-setup.

INSTALL_DIR="{{inputs.install_dir}}"

if [ -z "$DISPLAY" ]; then
    echo "Error: no display server found (DISPLAY is not set)" >&2
    exit 1
fi

if [ ! -x "{{inputs.venv_dir}}/bin/python" ]; then
    echo "Error: virtual environment not found at {{inputs.venv_dir}}" >&2
    echo "Re-run moinsy-setup without --skip-venv" >&2
    exit 1
fi

exec pkexec {{inputs.env_program}} DISPLAY="$DISPLAY" XAUTHORITY="${XAUTHORITY:-$HOME/.Xauthority}" {{inputs.debug_env}}\
    "{{inputs.venv_dir}}/bin/python" "$INSTALL_DIR/src/moinsy.py" {{inputs.debug_args}}"$@"
`

const desktopTemplate = `[Desktop Entry]
Type=Application
Name=Moinsy
Comment=Modular Installation System for Linux
Exec={{inputs.install_dir}}/run-moinsy.sh
Terminal=false
Categories=Utility;System;
StartupNotify=true
`

const policyTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE policyconfig PUBLIC
 "-//freedesktop//DTD PolicyKit Policy Configuration 1.0//EN"
 "http://www.freedesktop.org/standards/PolicyKit/1/policyconfig.dtd">
<policyconfig>
  <action id="com.ubuntu.pkexec.moinsy">
    <description>Run Moinsy</description>
    <message>Authentication is required to run Moinsy</message>
    <defaults>
      <allow_any>auth_admin</allow_any>
      <allow_inactive>auth_admin</allow_inactive>
      <allow_active>auth_admin_keep</allow_active>
    </defaults>
    <annotate key="org.freedesktop.policykit.exec.path">{{inputs.env_program}}</annotate>
    <annotate key="org.freedesktop.policykit.exec.allow_gui">true</annotate>
  </action>
</policyconfig>
`

// Extra environment and arguments of the developer run script.
const (
	devEnv  = `MOINSY_DEBUG=1 PYTHONDEVMODE=1 QT_LOGGING_RULES="*.debug=true" `
	devArgs = `--debug `
)
