package i18n

import "golang.org/x/text/language"

var catalog = map[language.Tag]map[string]string{
	language.English: {
		// Commands
		"root_short":         "Access remote servers through a Geofront server",
		"root_long":          "geofront-cli authenticates you against a Geofront server and runs ssh or scp against the remotes it authorizes.",
		"start_short":        "Set up the Geofront server URL",
		"authenticate_short": "Refresh the access token",
		"logout_short":       "Forget the stored access token",
		"remotes_short":      "List available remotes",
		"remote_short":       "Show the address of a remote",
		"authorize_short":    "Authorize access to a remote",
		"colonize_short":     "Allow the current master key on a remote",
		"ssh_short":          "SSH to a remote",
		"scp_short":          "Copy files to or from a remote",
		"go_short":           "Select a remote and SSH to it",
		"keys_short":         "List registered public keys",
		"masterkey_short":    "Show the current master key",
		"version_short":      "Show version information",

		// Flags
		"flag_verbose":         "Enable verbose logging",
		"flag_no_open_browser": "Do not open a web browser for authentication",
		"flag_ssh":             "Path to the ssh program",
		"flag_scp":             "Path to the scp program",
		"flag_lang":            "Language for output (en, es, de, ko)",
		"flag_address_index":   "Which address to use when a remote has several (0-based)",
		"flag_force":           "Overwrite an existing server URL",
		"flag_remotes_verbose": "Print remote addresses as well",
		"flag_keys_verbose":    "Print keys in authorized_keys format instead of fingerprints",
		"flag_masterkey":       "Print the master key in authorized_keys format instead of its fingerprint",
		"flag_identity":        "Alternative SSH identity (private key)",
		"flag_dynamic_port":    "Local port for dynamic (SOCKS) forwarding, passed to ssh as -D",
		"flag_tunnel":          "Reach the remote through the Geofront server over a WebSocket tunnel",
		"tunnel_open":          "Tunneling to %s through local port %d",
		"flag_recursive":       "Recursively copy directories",
		"flag_option":          "Extra option passed to ssh/scp as -o (repeatable)",

		// Setup
		"server_url_prompt":  "Geofront server URL",
		"server_url_saved":   "Server URL saved: %s",
		"server_url_exists":  "Server URL is already configured: %s (use -f to overwrite)",
		"server_url_invalid": "%s is not a valid server URL: %v",
		"insecure_warning":   "warning: %s is not using https; the access token is sent in clear text",

		// Authentication
		"auth_continue_in_browser": "Continue to authenticate in your web browser:",
		"auth_press_return":        "Press return after you finish authentication in the browser",
		"auth_browser_failed":      "Could not open a web browser: %v",
		"auth_waiting":             "Waiting for authentication...",
		"auth_success":             "Authenticated as %s (%s)",
		"auth_success_plain":       "Authentication succeeded",
		"auth_reauthenticating":    "The access token is no longer valid; authenticating again",
		"key_not_registered":       "You have a public key (%s), and it is not registered to the Geofront server (%s).",
		"key_register_confirm":     "Register the public key to the Geofront server?",
		"key_registered":           "Registered %s",
		"logout_done":              "Logged out from %s",

		// Remotes
		"no_remotes":        "No remotes are available",
		"pick_remote_title": "Select a remote",
		"remote_authorized": "%s is authorized until %s",
		"copy_needs_remote": "exactly one of source and destination must be a remote path (alias:path)",
	},
	language.Spanish: {
		"root_short":         "Acceder a servidores remotos a través de un servidor Geofront",
		"root_long":          "geofront-cli le autentica contra un servidor Geofront y ejecuta ssh o scp contra los remotos que autoriza.",
		"start_short":        "Configurar la URL del servidor Geofront",
		"authenticate_short": "Renovar el token de acceso",
		"logout_short":       "Olvidar el token de acceso guardado",
		"remotes_short":      "Listar los remotos disponibles",
		"remote_short":       "Mostrar la dirección de un remoto",
		"authorize_short":    "Autorizar el acceso a un remoto",
		"colonize_short":     "Autorizar la clave maestra actual en un remoto",
		"ssh_short":          "Conectarse por SSH a un remoto",
		"scp_short":          "Copiar archivos desde o hacia un remoto",
		"go_short":           "Elegir un remoto y conectarse por SSH",
		"keys_short":         "Listar las claves públicas registradas",
		"masterkey_short":    "Mostrar la clave maestra actual",
		"version_short":      "Mostrar información de versión",

		"flag_verbose":         "Habilitar registro detallado",
		"flag_no_open_browser": "No abrir un navegador web para la autenticación",
		"flag_ssh":             "Ruta del programa ssh",
		"flag_scp":             "Ruta del programa scp",
		"flag_lang":            "Idioma de salida (en, es, de, ko)",
		"flag_address_index":   "Qué dirección usar cuando un remoto tiene varias (desde 0)",
		"flag_force":           "Sobrescribir la URL del servidor existente",
		"flag_remotes_verbose": "Mostrar también las direcciones de los remotos",
		"flag_keys_verbose":    "Mostrar las claves en formato authorized_keys en lugar de huellas",
		"flag_masterkey":       "Mostrar la clave maestra en formato authorized_keys en lugar de su huella",
		"flag_identity":        "Identidad SSH alternativa (clave privada)",
		"flag_dynamic_port":    "Puerto local para reenvío dinámico (SOCKS), pasado a ssh como -D",
		"flag_tunnel":          "Llegar al remoto a través del servidor Geofront con un túnel WebSocket",
		"tunnel_open":          "Túnel hacia %s por el puerto local %d",
		"flag_recursive":       "Copiar directorios recursivamente",
		"flag_option":          "Opción adicional para ssh/scp como -o (repetible)",

		"server_url_prompt":  "URL del servidor Geofront",
		"server_url_saved":   "URL del servidor guardada: %s",
		"server_url_exists":  "La URL del servidor ya está configurada: %s (use -f para sobrescribir)",
		"server_url_invalid": "%s no es una URL de servidor válida: %v",
		"insecure_warning":   "advertencia: %s no usa https; el token de acceso se envía sin cifrar",

		"auth_continue_in_browser": "Continúe la autenticación en su navegador web:",
		"auth_press_return":        "Pulse Intro cuando termine la autenticación en el navegador",
		"auth_browser_failed":      "No se pudo abrir un navegador web: %v",
		"auth_waiting":             "Esperando la autenticación...",
		"auth_success":             "Autenticado como %s (%s)",
		"auth_success_plain":       "Autenticación completada",
		"auth_reauthenticating":    "El token de acceso ya no es válido; autenticando de nuevo",
		"key_not_registered":       "Tiene una clave pública (%s) que no está registrada en el servidor Geofront (%s).",
		"key_register_confirm":     "¿Registrar la clave pública en el servidor Geofront?",
		"key_registered":           "Registrada %s",
		"logout_done":              "Sesión cerrada en %s",

		"no_remotes":        "No hay remotos disponibles",
		"pick_remote_title": "Seleccione un remoto",
		"remote_authorized": "%s está autorizado hasta %s",
		"copy_needs_remote": "exactamente uno de origen y destino debe ser una ruta remota (alias:ruta)",
	},
	language.German: {
		"root_short":         "Über einen Geofront-Server auf entfernte Server zugreifen",
		"root_long":          "geofront-cli authentifiziert Sie gegenüber einem Geofront-Server und startet ssh oder scp für die freigegebenen Ziele.",
		"start_short":        "Die Geofront-Server-URL einrichten",
		"authenticate_short": "Das Zugriffstoken erneuern",
		"logout_short":       "Das gespeicherte Zugriffstoken vergessen",
		"remotes_short":      "Verfügbare Ziele auflisten",
		"remote_short":       "Die Adresse eines Ziels anzeigen",
		"authorize_short":    "Zugriff auf ein Ziel autorisieren",
		"colonize_short":     "Den aktuellen Hauptschlüssel auf einem Ziel zulassen",
		"ssh_short":          "Per SSH mit einem Ziel verbinden",
		"scp_short":          "Dateien zu oder von einem Ziel kopieren",
		"go_short":           "Ein Ziel auswählen und per SSH verbinden",
		"keys_short":         "Registrierte öffentliche Schlüssel auflisten",
		"masterkey_short":    "Den aktuellen Hauptschlüssel anzeigen",
		"version_short":      "Versionsinformationen anzeigen",

		"flag_verbose":         "Ausführliche Protokollierung aktivieren",
		"flag_no_open_browser": "Keinen Webbrowser zur Authentifizierung öffnen",
		"flag_ssh":             "Pfad zum ssh-Programm",
		"flag_scp":             "Pfad zum scp-Programm",
		"flag_lang":            "Ausgabesprache (en, es, de, ko)",
		"flag_address_index":   "Welche Adresse bei mehreren verwendet wird (ab 0)",
		"flag_force":           "Vorhandene Server-URL überschreiben",
		"flag_remotes_verbose": "Auch die Adressen der Ziele ausgeben",
		"flag_keys_verbose":    "Schlüssel im authorized_keys-Format statt als Fingerabdruck ausgeben",
		"flag_masterkey":       "Hauptschlüssel im authorized_keys-Format statt als Fingerabdruck ausgeben",
		"flag_identity":        "Alternative SSH-Identität (privater Schlüssel)",
		"flag_dynamic_port":    "Lokaler Port für dynamische (SOCKS-)Weiterleitung, an ssh als -D übergeben",
		"flag_tunnel":          "Das Ziel über einen WebSocket-Tunnel durch den Geofront-Server erreichen",
		"tunnel_open":          "Tunnel zu %s über den lokalen Port %d",
		"flag_recursive":       "Verzeichnisse rekursiv kopieren",
		"flag_option":          "Zusätzliche Option für ssh/scp als -o (mehrfach möglich)",

		"server_url_prompt":  "Geofront-Server-URL",
		"server_url_saved":   "Server-URL gespeichert: %s",
		"server_url_exists":  "Server-URL ist bereits eingerichtet: %s (mit -f überschreiben)",
		"server_url_invalid": "%s ist keine gültige Server-URL: %v",
		"insecure_warning":   "Warnung: %s verwendet kein https; das Zugriffstoken wird im Klartext übertragen",

		"auth_continue_in_browser": "Setzen Sie die Authentifizierung im Webbrowser fort:",
		"auth_press_return":        "Drücken Sie die Eingabetaste, wenn die Authentifizierung im Browser abgeschlossen ist",
		"auth_browser_failed":      "Webbrowser konnte nicht geöffnet werden: %v",
		"auth_waiting":             "Warte auf Authentifizierung...",
		"auth_success":             "Angemeldet als %s (%s)",
		"auth_success_plain":       "Authentifizierung erfolgreich",
		"auth_reauthenticating":    "Das Zugriffstoken ist nicht mehr gültig; erneute Authentifizierung",
		"key_not_registered":       "Sie haben einen öffentlichen Schlüssel (%s), der beim Geofront-Server (%s) nicht registriert ist.",
		"key_register_confirm":     "Öffentlichen Schlüssel beim Geofront-Server registrieren?",
		"key_registered":           "%s registriert",
		"logout_done":              "Von %s abgemeldet",

		"no_remotes":        "Keine Ziele verfügbar",
		"pick_remote_title": "Ziel auswählen",
		"remote_authorized": "%s ist autorisiert bis %s",
		"copy_needs_remote": "genau eines von Quelle und Ziel muss ein entfernter Pfad sein (alias:pfad)",
	},
	language.Korean: {
		"root_short":         "Geofront 서버를 통해 원격 서버에 접속합니다",
		"root_long":          "geofront-cli는 Geofront 서버로 인증한 뒤 허가된 원격 서버에 ssh 또는 scp를 실행합니다.",
		"start_short":        "Geofront 서버 URL을 설정합니다",
		"authenticate_short": "액세스 토큰을 갱신합니다",
		"logout_short":       "저장된 액세스 토큰을 삭제합니다",
		"remotes_short":      "사용 가능한 원격 서버 목록을 보여줍니다",
		"remote_short":       "원격 서버의 주소를 보여줍니다",
		"authorize_short":    "원격 서버 접근을 허가합니다",
		"colonize_short":     "원격 서버가 현재 마스터 키를 허용하도록 합니다",
		"ssh_short":          "원격 서버에 SSH로 접속합니다",
		"scp_short":          "원격 서버와 파일을 복사합니다",
		"go_short":           "원격 서버를 골라 SSH로 접속합니다",
		"keys_short":         "등록된 공개 키 목록을 보여줍니다",
		"masterkey_short":    "현재 마스터 키를 보여줍니다",
		"version_short":      "버전 정보를 보여줍니다",

		"flag_verbose":         "자세한 로그를 출력합니다",
		"flag_no_open_browser": "인증을 위해 웹 브라우저를 열지 않습니다",
		"flag_ssh":             "ssh 프로그램 경로",
		"flag_scp":             "scp 프로그램 경로",
		"flag_lang":            "출력 언어 (en, es, de, ko)",
		"flag_address_index":   "원격 서버의 주소가 여러 개일 때 사용할 주소 (0부터)",
		"flag_force":           "기존 서버 URL을 덮어씁니다",
		"flag_remotes_verbose": "원격 서버 주소도 함께 출력합니다",
		"flag_keys_verbose":    "지문 대신 authorized_keys 형식으로 출력합니다",
		"flag_masterkey":       "지문 대신 authorized_keys 형식으로 마스터 키를 출력합니다",
		"flag_identity":        "다른 SSH 아이덴티티 (개인 키)",
		"flag_dynamic_port":    "동적(SOCKS) 포워딩에 쓸 로컬 포트 (ssh -D로 전달)",
		"flag_tunnel":          "Geofront 서버를 거치는 WebSocket 터널로 원격 서버에 접속합니다",
		"tunnel_open":          "%s(으)로 로컬 포트 %d를 통해 터널링합니다",
		"flag_recursive":       "디렉터리를 재귀적으로 복사합니다",
		"flag_option":          "ssh/scp에 -o로 넘길 추가 옵션 (반복 가능)",

		"server_url_prompt":  "Geofront 서버 URL",
		"server_url_saved":   "서버 URL을 저장했습니다: %s",
		"server_url_exists":  "서버 URL이 이미 설정되어 있습니다: %s (-f로 덮어쓰기)",
		"server_url_invalid": "%s는 올바른 서버 URL이 아닙니다: %v",
		"insecure_warning":   "경고: %s는 https를 사용하지 않아 액세스 토큰이 암호화되지 않은 채 전송됩니다",

		"auth_continue_in_browser": "웹 브라우저에서 인증을 계속하세요:",
		"auth_press_return":        "브라우저에서 인증을 마친 뒤 엔터를 누르세요",
		"auth_browser_failed":      "웹 브라우저를 열 수 없습니다: %v",
		"auth_waiting":             "인증을 기다리는 중...",
		"auth_success":             "%s (%s)로 인증되었습니다",
		"auth_success_plain":       "인증에 성공했습니다",
		"auth_reauthenticating":    "액세스 토큰이 더 이상 유효하지 않아 다시 인증합니다",
		"key_not_registered":       "공개 키(%s)가 Geofront 서버(%s)에 등록되어 있지 않습니다.",
		"key_register_confirm":     "공개 키를 Geofront 서버에 등록할까요?",
		"key_registered":           "%s 등록됨",
		"logout_done":              "%s에서 로그아웃했습니다",

		"no_remotes":        "사용 가능한 원격 서버가 없습니다",
		"pick_remote_title": "원격 서버를 선택하세요",
		"remote_authorized": "%s는 %s까지 허가되었습니다",
		"copy_needs_remote": "원본과 대상 중 정확히 하나가 원격 경로(alias:path)여야 합니다",
	},
}
